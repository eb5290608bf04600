// Package service 把物化与持久化编排成文件级导入操作。
// 每个文件独立一个存储事务，单个文件失败不传染同批次其它文件。
package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oee-ingestor/internal/domain"
	"oee-ingestor/internal/notify"
)

// allowedExtensions ERP 导出只认这两种格式
var allowedExtensions = map[string]struct{}{
	".csv":  {},
	".xlsx": {},
}

// AllowedFile 文件名是否属于可导入类型（隐藏/临时文件除外）
func AllowedFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FileMaterializer 物化器契约
type FileMaterializer interface {
	MaterializeFile(path string) ([]*domain.ProductionRecord, error)
}

// RecordInserter 持久化网关契约（单事务整批插入）
type RecordInserter interface {
	InsertBatch(ctx context.Context, records []*domain.ProductionRecord) (int, error)
}

// ResultNotifier 导入结果通知契约
type ResultNotifier interface {
	NotifyResult(ctx context.Context, ev notify.Event) error
}

// FileResult 单个文件的导入结果
type FileResult struct {
	JobID    string `json:"job_id"`
	File     string `json:"file"`
	Path     string `json:"-"` // 服务端完整路径，仅供进程内台账记账，不外发
	Success  bool   `json:"success"`
	Inserted int    `json:"inserted"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchSummary 一批文件的汇总
type BatchSummary struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Results   []FileResult `json:"results"`
}

// IngestService 文件导入服务
type IngestService struct {
	materializer FileMaterializer
	records      RecordInserter
	notifier     ResultNotifier // 可为 nil（未配置 webhook）
	logger       *zap.Logger
}

// NewIngestService 创建文件导入服务
func NewIngestService(
	materializer FileMaterializer,
	records RecordInserter,
	notifier ResultNotifier,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		materializer: materializer,
		records:      records,
		notifier:     notifier,
		logger:       logger,
	}
}

// ProcessFile 导入单个文件：物化 → 单事务整批插入。
// 返回插入条数；失败时返回分类的 IngestError，且保证没有任何行落库。
// 可对不同文件并发调用。
func (s *IngestService) ProcessFile(ctx context.Context, path string) (int, error) {
	return s.processOne(ctx, path, uuid.NewString())
}

// ProcessBatch 依次导入一批文件，文件级隔离：记下每个失败，继续下一个
func (s *IngestService) ProcessBatch(ctx context.Context, paths []string) BatchSummary {
	summary := BatchSummary{Total: len(paths)}
	for _, path := range paths {
		result := FileResult{
			JobID: uuid.NewString(),
			File:  filepath.Base(path),
			Path:  path,
		}
		count, err := s.processOne(ctx, path, result.JobID)
		if err != nil {
			result.Error = err.Error()
			if kind, ok := domain.KindOf(err); ok {
				result.Reason = kind.String()
			}
		} else {
			result.Success = true
			result.Inserted = count
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, result)
	}
	s.logger.Info("Batch ingestion finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("total", summary.Total),
	)
	return summary
}

func (s *IngestService) processOne(ctx context.Context, path, jobID string) (int, error) {
	fileName := filepath.Base(path)
	s.logger.Info("Starting file ingestion",
		zap.String("job_id", jobID),
		zap.String("file", fileName),
	)

	records, err := s.materializer.MaterializeFile(path)
	if err != nil {
		s.reportFailure(ctx, jobID, fileName, err)
		return 0, err
	}
	count, err := s.records.InsertBatch(ctx, records)
	if err != nil {
		// 存储层失败已在网关内整体回滚，这里只负责分类
		err = domain.NewIngestError(domain.ErrStorage, fileName, err)
		s.reportFailure(ctx, jobID, fileName, err)
		return 0, err
	}
	s.logger.Info("File ingested",
		zap.String("job_id", jobID),
		zap.String("file", fileName),
		zap.Int("inserted", count),
	)
	s.sendNotification(ctx, notify.Event{
		JobID:      jobID,
		File:       fileName,
		Success:    true,
		Inserted:   count,
		OccurredAt: time.Now(),
	})
	return count, nil
}

func (s *IngestService) reportFailure(ctx context.Context, jobID, fileName string, err error) {
	reason := "unknown"
	if kind, ok := domain.KindOf(err); ok {
		reason = kind.String()
	}
	s.logger.Error("File ingestion failed",
		zap.String("job_id", jobID),
		zap.String("file", fileName),
		zap.String("reason", reason),
		zap.Error(err),
	)
	s.sendNotification(ctx, notify.Event{
		JobID:      jobID,
		File:       fileName,
		Success:    false,
		Reason:     reason,
		Error:      err.Error(),
		OccurredAt: time.Now(),
	})
}

func (s *IngestService) sendNotification(ctx context.Context, ev notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyResult(ctx, ev); err != nil {
		s.logger.Warn("Failed to deliver ingest notification",
			zap.String("file", ev.File),
			zap.Error(err),
		)
	}
}
