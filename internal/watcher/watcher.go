// Package watcher 监视上传目录，把落盘稳定的新文件交给导入服务。
// 与报表界面完全解耦：外界只通过事件通道观察它。
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"oee-ingestor/internal/domain"
	"oee-ingestor/internal/service"
)

// Ingestor 导入服务契约
type Ingestor interface {
	ProcessFile(ctx context.Context, path string) (int, error)
}

// Ledger 已处理文件台账契约
type Ledger interface {
	AlreadyProcessed(ctx context.Context, path string, mtime time.Time) (bool, error)
	MarkProcessed(ctx context.Context, path string, mtime time.Time) error
}

// 事件状态
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Event 目录监视产生的一条导入事件
type Event struct {
	File     string    `json:"file"`
	Status   string    `json:"status"`
	Inserted int       `json:"inserted"`
	Reason   string    `json:"reason,omitempty"`
	Time     time.Time `json:"time"`
}

// seenFile 稳定性检查用的上次观测值
type seenFile struct {
	size      int64
	mtime     time.Time
	firstSeen time.Time
}

// Watcher 轮询式目录监视器。
// 新文件要求连续两次扫描间大小和修改时间都不变、且静置满 settleDelay
// 才判定写入完成，避免读到写了一半的文件。
type Watcher struct {
	dir          string
	pollInterval time.Duration
	settleDelay  time.Duration
	ingestor     Ingestor
	ledger       Ledger
	logger       *zap.Logger

	events chan Event
	seen   map[string]seenFile
	done   map[string]int64 // 路径 → 本进程内已处理(或已跳过)的 mtime
}

// NewWatcher 创建目录监视器
func NewWatcher(
	dir string,
	pollInterval, settleDelay time.Duration,
	ingestor Ingestor,
	ledger Ledger,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		dir:          dir,
		pollInterval: pollInterval,
		settleDelay:  settleDelay,
		ingestor:     ingestor,
		ledger:       ledger,
		logger:       logger,
		events:       make(chan Event, 64),
		seen:         make(map[string]seenFile),
		done:         make(map[string]int64),
	}
}

// Events 监视事件通道，报表侧订阅用
func (w *Watcher) Events() <-chan Event { return w.events }

// Start 启动监视循环，ctx 取消后在两个文件之间停止（文件是同步处理的
// 整体工作单元，不会有进行中的导入被打断）。
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	w.logger.Info("Folder watch started",
		zap.String("dir", w.dir),
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("settle_delay", w.settleDelay),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Folder watch stopped")
			return nil
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("Failed to read watch directory", zap.Error(err))
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !service.AllowedFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			// 扫描间隙被删走了，下轮不会再出现
			continue
		}

		if done, ok := w.done[path]; ok && done == info.ModTime().Unix() {
			continue
		}

		prev, ok := w.seen[path]
		if !ok || prev.size != info.Size() || !prev.mtime.Equal(info.ModTime()) {
			// 第一次看到，或还在被写入：重新计静置时间
			w.seen[path] = seenFile{size: info.Size(), mtime: info.ModTime(), firstSeen: now}
			continue
		}
		if now.Sub(prev.firstSeen) < w.settleDelay {
			continue
		}

		w.handleFile(ctx, path, info.ModTime())
		delete(w.seen, path)
	}
}

func (w *Watcher) handleFile(ctx context.Context, path string, mtime time.Time) {
	fileName := filepath.Base(path)

	processed, err := w.ledger.AlreadyProcessed(ctx, path, mtime)
	if err != nil {
		w.logger.Error("Failed to consult processed ledger",
			zap.String("file", fileName), zap.Error(err))
		return
	}
	if processed {
		w.logger.Info("Skipping already processed file version", zap.String("file", fileName))
		w.done[path] = mtime.Unix()
		w.emit(Event{File: fileName, Status: StatusSkipped, Reason: "already processed", Time: time.Now()})
		return
	}

	count, err := w.ingestor.ProcessFile(ctx, path)
	// 成功与否都记入本进程的 done 集合：失败不自动重试，人工重传或
	// 文件重写出新 mtime 后才会再入队
	w.done[path] = mtime.Unix()
	if err != nil {
		reason := "unknown"
		if kind, ok := domain.KindOf(err); ok {
			reason = kind.String()
		}
		w.emit(Event{File: fileName, Status: StatusFailed, Reason: reason, Time: time.Now()})
		return
	}

	if err := w.ledger.MarkProcessed(ctx, path, mtime); err != nil {
		w.logger.Error("Failed to record processed file version",
			zap.String("file", fileName), zap.Error(err))
	}
	w.emit(Event{File: fileName, Status: StatusProcessed, Inserted: count, Time: time.Now()})
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		// 没有订阅者或订阅者太慢时宁可丢事件也不阻塞导入
		w.logger.Debug("Dropping watch event, channel full", zap.String("file", ev.File))
	}
}
