package domain

import (
	"errors"
	"fmt"
)

// ErrKind 文件级导入失败的分类
type ErrKind int

const (
	ErrNotFound    ErrKind = iota // 目标文件不存在（含静置等待期间消失）
	ErrRead                       // 无法按带表头的分隔文本/工作簿解析
	ErrCoercion                   // 列映射/类型转换的结构性假设被破坏
	ErrCalculation                // 指标计算阶段的意外异常
	ErrStorage                    // 存储层插入失败，已整批回滚
)

func (k ErrKind) String() string {
	switch k {
	case ErrNotFound:
		return "not_found"
	case ErrRead:
		return "read_error"
	case ErrCoercion:
		return "coercion_error"
	case ErrCalculation:
		return "calculation_error"
	case ErrStorage:
		return "storage_error"
	default:
		return "unknown"
	}
}

// IngestError 带分类和文件名的导入错误。所有失败都是文件级的：
// 一个文件失败不影响同批次其它文件。
type IngestError struct {
	Kind ErrKind
	File string
	Err  error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.File)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.File, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// NewIngestError 构造分类导入错误
func NewIngestError(kind ErrKind, file string, err error) *IngestError {
	return &IngestError{Kind: kind, File: file, Err: err}
}

// KindOf 取出错误的分类；不是 IngestError 时返回 false
func KindOf(err error) (ErrKind, bool) {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}
