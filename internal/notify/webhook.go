package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Event 单个文件的导入结果，POST 给外部系统（MES 看板、报警网关等）
type Event struct {
	JobID      string    `json:"job_id"`
	File       string    `json:"file"`
	Success    bool      `json:"success"`
	Inserted   int       `json:"inserted"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WebhookNotifier 导入结果 Webhook 通知器。尽力而为：通知失败只记日志，
// 绝不影响导入本身的结果。
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier 创建 Webhook 通知器
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// NotifyResult 推送一条导入结果
func (n *WebhookNotifier) NotifyResult(ctx context.Context, ev Event) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(ev).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post ingest result webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ingest result webhook returned status %d", resp.StatusCode())
	}
	n.logger.Debug("Ingest result webhook delivered",
		zap.String("job_id", ev.JobID),
		zap.String("file", ev.File),
	)
	return nil
}
