package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"oee-ingestor/internal/repository"
	"oee-ingestor/internal/watcher"
)

// 监视事件环形缓冲上限，超出后最老的先被顶掉
const maxMonitorEvents = 100

// LedgerLister 已处理文件台账的只读视图
type LedgerLister interface {
	Entries(ctx context.Context) ([]repository.ProcessedEntry, error)
}

// MonitorHandler 导入监控 Handler。
// 订阅监视器的事件通道，在内存里保留最近的事件快照；
// 另外开放已处理文件台账的只读查询。
type MonitorHandler struct {
	mu     sync.RWMutex
	events []watcher.Event
	ledger LedgerLister
}

// NewMonitorHandler 创建导入监控 Handler
func NewMonitorHandler(ledger LedgerLister) *MonitorHandler {
	return &MonitorHandler{ledger: ledger}
}

// Consume 持续消费监视事件直到 ctx 取消，应在独立 goroutine 里运行
func (h *MonitorHandler) Consume(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.append(ev)
		}
	}
}

func (h *MonitorHandler) append(ev watcher.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	if len(h.events) > maxMonitorEvents {
		h.events = h.events[len(h.events)-maxMonitorEvents:]
	}
}

// ListEvents 返回最近的监视事件，新事件在后
func (h *MonitorHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	snapshot := make([]watcher.Event, len(h.events))
	copy(snapshot, h.events)
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total": len(snapshot),
		"items": snapshot,
	}))
}

// ListProcessed 列出已处理文件台账，排查某个文件版本为何被跳过
func (h *MonitorHandler) ListProcessed(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Entries(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list processed ledger: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total": len(entries),
		"items": entries,
	}))
}
