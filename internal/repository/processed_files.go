package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"oee-ingestor/internal/store"
)

// ledgerKeyPrefix 台账键：oee-ingestor:processed:<文件路径> → 修改时间(unix 秒)
const ledgerKeyPrefix = "oee-ingestor:processed:"

// ProcessedFilesLedger 已处理文件台账，保证同一 (路径, 修改时间) 版本
// 至多成功导入一次。放在 Redis 里，进程重启后依然有效。
type ProcessedFilesLedger struct {
	kv     store.KV
	logger *zap.Logger
}

// NewProcessedFilesLedger 创建已处理文件台账
func NewProcessedFilesLedger(kv store.KV, logger *zap.Logger) *ProcessedFilesLedger {
	return &ProcessedFilesLedger{kv: kv, logger: logger}
}

// AlreadyProcessed 当前 (路径, 修改时间) 版本是否已成功导入过
func (l *ProcessedFilesLedger) AlreadyProcessed(ctx context.Context, path string, mtime time.Time) (bool, error) {
	val, err := l.kv.Get(ctx, ledgerKeyPrefix+path)
	if err != nil {
		if err == store.ErrMiss {
			return false, nil
		}
		return false, fmt.Errorf("failed to read processed ledger: %w", err)
	}
	recorded, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// 坏条目当作未处理，重新导入比漏导入安全
		l.logger.Warn("Corrupt ledger entry, treating as unprocessed",
			zap.String("path", path), zap.String("value", val))
		return false, nil
	}
	return recorded == mtime.Unix(), nil
}

// MarkProcessed 记录该文件版本已成功导入。只在整批插入提交之后调用。
func (l *ProcessedFilesLedger) MarkProcessed(ctx context.Context, path string, mtime time.Time) error {
	if err := l.kv.Set(ctx, ledgerKeyPrefix+path, strconv.FormatInt(mtime.Unix(), 10), 0); err != nil {
		return fmt.Errorf("failed to write processed ledger: %w", err)
	}
	return nil
}

// ProcessedEntry 台账里的一条已处理文件版本
type ProcessedEntry struct {
	Path  string `json:"path"`
	MTime int64  `json:"mtime"`
}

// Entries 列出台账全部条目（按路径排序），供监控面排查哪些文件版本
// 已经导入过。坏条目跳过不报错。
func (l *ProcessedFilesLedger) Entries(ctx context.Context) ([]ProcessedEntry, error) {
	keys, err := l.kv.ScanKeys(ctx, ledgerKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan processed ledger: %w", err)
	}
	sort.Strings(keys)

	entries := make([]ProcessedEntry, 0, len(keys))
	for _, key := range keys {
		val, err := l.kv.Get(ctx, key)
		if err != nil {
			if err == store.ErrMiss {
				continue // 扫描和读取之间被删掉了
			}
			return nil, fmt.Errorf("failed to read processed ledger: %w", err)
		}
		mtime, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			l.logger.Warn("Skipping corrupt ledger entry",
				zap.String("key", key), zap.String("value", val))
			continue
		}
		entries = append(entries, ProcessedEntry{
			Path:  strings.TrimPrefix(key, ledgerKeyPrefix),
			MTime: mtime,
		})
	}
	return entries, nil
}
