package httpapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"oee-ingestor/internal/service"
)

// 单次上传请求体上限（32 MiB，足够覆盖整月的班次数据文件）
const maxUploadBytes = 32 << 20

// BatchIngestor 批量导入契约
type BatchIngestor interface {
	ProcessBatch(ctx context.Context, paths []string) service.BatchSummary
}

// ProcessedMarker 已处理台账写入契约。上传保存进的就是被监视的目录，
// 导入成功后立刻记账，目录监视器才不会把同一份文件再导一遍。
type ProcessedMarker interface {
	MarkProcessed(ctx context.Context, path string, mtime time.Time) error
}

// IngestHandler 文件上传导入 Handler
type IngestHandler struct {
	uploadDir string
	ingestor  BatchIngestor
	ledger    ProcessedMarker
	logger    *zap.Logger
}

// NewIngestHandler 创建文件上传导入 Handler
func NewIngestHandler(uploadDir string, ingestor BatchIngestor, ledger ProcessedMarker, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		uploadDir: uploadDir,
		ingestor:  ingestor,
		ledger:    ledger,
		logger:    logger,
	}
}

// Upload 接收 multipart 上传（字段名 files，可多个），保存到上传目录后
// 逐个导入。单个文件失败不影响其余文件，结果汇总在响应里。
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid multipart body"))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusOK, Fail("no files uploaded"))
		return
	}

	var paths []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !service.AllowedFile(name) {
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("unsupported file type: %s", name)))
			return
		}
		path, err := h.saveUpload(fh, name)
		if err != nil {
			h.logger.Error("Failed to save uploaded file",
				zap.String("file", name), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to save file: %s", name)))
			return
		}
		paths = append(paths, path)
	}

	summary := h.ingestor.ProcessBatch(r.Context(), paths)
	h.markProcessed(r.Context(), summary)
	writeJSON(w, http.StatusOK, Ok(summary))
}

func (h *IngestHandler) saveUpload(fh *multipart.FileHeader, name string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// markProcessed 把本次成功导入的文件版本记入台账
func (h *IngestHandler) markProcessed(ctx context.Context, summary service.BatchSummary) {
	if h.ledger == nil {
		return
	}
	for _, res := range summary.Results {
		if !res.Success {
			continue
		}
		info, err := os.Stat(res.Path)
		if err != nil {
			h.logger.Warn("Failed to stat ingested file for ledger",
				zap.String("file", res.File), zap.Error(err))
			continue
		}
		if err := h.ledger.MarkProcessed(ctx, res.Path, info.ModTime()); err != nil {
			h.logger.Warn("Failed to record processed file version",
				zap.String("file", res.File), zap.Error(err))
		}
	}
}
