package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"oee-ingestor/internal/repository"
)

// 列表查询默认/最大返回行数
const (
	defaultRecordLimit = 500
	maxRecordLimit     = 5000
)

// ReportHandler 生产记录报表查询 Handler
type ReportHandler struct {
	repo   repository.ProductionRecordsRepository
	logger *zap.Logger
}

// NewReportHandler 创建报表查询 Handler
func NewReportHandler(repo repository.ProductionRecordsRepository, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{repo: repo, logger: logger}
}

// filterFromQuery 从查询参数组装过滤条件：
// start_date / end_date 为 DD-MM-YYYY，machines / shifts / operators
// 为逗号分隔多值，limit 为最大返回行数。
func filterFromQuery(r *http.Request) repository.RecordFilter {
	q := r.URL.Query()
	limit := parseInt(q.Get("limit"), defaultRecordLimit)
	if limit <= 0 || limit > maxRecordLimit {
		limit = defaultRecordLimit
	}
	return repository.RecordFilter{
		StartDate: parseDate(q.Get("start_date")),
		EndDate:   parseDate(q.Get("end_date")),
		Machines:  parseList(q.Get("machines")),
		Shifts:    parseList(q.Get("shifts")),
		Operators: parseList(q.Get("operators")),
		Limit:     limit,
	}
}

// ListRecords 查询生产记录列表
func (h *ReportHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	records, err := h.repo.Filter(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to query production records", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to query records: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total": len(records),
		"items": records,
	}))
}

// CountRecords 查询生产记录总数
func (h *ReportHandler) CountRecords(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.Count(r.Context())
	if err != nil {
		h.logger.Error("Failed to count production records", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to count records: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int64{"count": count}))
}

// ListOEEErrors 查询 OEE 超过 100% 的异常记录。性能比率未封顶，
// 循环时间或计划时间录错时 OEE 会越界，这个视图用来人工排查。
func (h *ReportHandler) ListOEEErrors(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	records, err := h.repo.OEEErrors(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to query OEE error records", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to query OEE errors: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total": len(records),
		"items": records,
	}))
}
