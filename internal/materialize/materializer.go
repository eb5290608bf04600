// Package materialize 把一个导出文件变成一批模式一致、指标齐全的生产记录。
// 读原始行 → 归一化表头 → 按字段表清洗 → 计算指标 → 装配记录。
// 任何阶段失败都放弃整个文件并带分类上抛，绝不产生半批记录。
package materialize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"oee-ingestor/internal/coerce"
	"oee-ingestor/internal/domain"
	"oee-ingestor/internal/metrics"
	"oee-ingestor/internal/normalize"
)

// Materializer 记录物化器。无共享可变状态，可在任意 goroutine 并发调用。
type Materializer struct {
	logger *zap.Logger
}

// NewMaterializer 创建记录物化器
func NewMaterializer(logger *zap.Logger) *Materializer {
	return &Materializer{logger: logger}
}

// MaterializeFile 物化单个文件，返回按文件顺序排列的记录批。
// 只有表头的文件返回零条记录，不算错误。本组件不接触存储。
func (m *Materializer) MaterializeFile(path string) ([]*domain.ProductionRecord, error) {
	fileName := filepath.Base(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewIngestError(domain.ErrNotFound, fileName, err)
		}
		return nil, domain.NewIngestError(domain.ErrRead, fileName, err)
	}

	rows, err := m.readRows(path)
	if err != nil {
		return nil, domain.NewIngestError(domain.ErrRead, fileName, err)
	}
	if len(rows) == 0 {
		return nil, domain.NewIngestError(domain.ErrRead, fileName, errors.New("no header row"))
	}
	if len(rows) == 1 {
		m.logger.Warn("File has header only, nothing to ingest", zap.String("file", fileName))
		return []*domain.ProductionRecord{}, nil
	}

	res := normalize.Resolve(rows[0])
	if len(res.Columns) == 0 {
		return nil, domain.NewIngestError(domain.ErrCoercion, fileName,
			fmt.Errorf("no header column maps to the record schema"))
	}
	if len(res.Missing) > 0 {
		m.logger.Warn("Columns expected from mapping not found, filling with null",
			zap.String("file", fileName),
			zap.Strings("missing", res.Missing),
		)
	}
	if len(res.Extra) > 0 {
		m.logger.Info("Extra columns after mapping ignored",
			zap.String("file", fileName),
			zap.Strings("extra", res.Extra),
		)
	}

	kinds := make(map[string]domain.FieldKind, len(domain.InputFields))
	for _, f := range domain.InputFields {
		kinds[f.Name] = f.Kind
	}

	records := make([]*domain.ProductionRecord, 0, len(rows)-1)
	fractionalCols := map[string]struct{}{}
	for _, row := range rows[1:] {
		rec := &domain.ProductionRecord{}
		for idx, name := range res.Columns {
			raw := ""
			if idx < len(row) {
				raw = row[idx]
			}
			if frac := setField(rec, name, kinds[name], raw); frac {
				fractionalCols[name] = struct{}{}
			}
		}
		if err := computeMetrics(rec); err != nil {
			return nil, domain.NewIngestError(domain.ErrCalculation, fileName, err)
		}
		records = append(records, rec)
	}

	for col := range fractionalCols {
		m.logger.Warn("Integer column contains fractional values, truncating",
			zap.String("file", fileName),
			zap.String("column", col),
		)
	}

	m.logger.Info("Materialized records",
		zap.String("file", fileName),
		zap.Int("rows", len(records)),
	)
	return records, nil
}

// readRows 按扩展名读取带表头的原始行，每个单元格一律当文本
func (m *Materializer) readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // 容忍长短不一的行
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// setField 按字段表声明的规则清洗一个单元格并写入记录。
// 返回值标记整数列发生过小数截断。
func setField(rec *domain.ProductionRecord, name string, kind domain.FieldKind, raw string) bool {
	switch kind {
	case domain.FieldDate:
		rec.PostingDate = coerce.NormalizeDate(raw)

	case domain.FieldTimeOfDay:
		v := coerce.CleanTimeOfDay(raw)
		if name == "start_time" {
			rec.StartTime = v
		} else {
			rec.EndTime = v
		}

	case domain.FieldSeconds:
		v := coerce.TimeToSeconds(raw)
		switch name {
		case "plan_time":
			rec.PlanTime = v
		case "actual_run_time":
			rec.ActualRunTime = v
		case "loss_time":
			rec.LossTime = v
		case "loss_time_should_be":
			rec.LossTimeShouldBe = v
		case "reason_time_hm":
			rec.ReasonTimeHM = v
		}

	case domain.FieldInt:
		v, frac := coerce.SafeInt(raw)
		switch name {
		case "operation_no":
			rec.OperationNo = v
		case "order_line_no":
			rec.OrderLineNo = v
		case "output_quantity":
			rec.OutputQuantity = v
		case "rejection_qty":
			rec.RejectionQty = v
		case "rework_qty":
			rec.ReworkQty = v
		}
		return frac

	case domain.FieldFloat:
		rec.CurrentCT = coerce.SafeFloat(raw, 0)

	case domain.FieldText:
		v := coerce.CleanText(raw)
		switch name {
		case "document_no":
			rec.DocumentNo = v
		case "order_no":
			rec.OrderNo = v
		case "item_no":
			rec.ItemNo = v
		case "operation_description":
			rec.OperationDescription = v
		case "type":
			rec.Type = v
		case "machine_no":
			rec.MachineNo = v
		case "rejection_reason":
			rec.RejectionReason = v
		case "rework_reason":
			rec.ReworkReason = v
		case "work_shift_code":
			rec.WorkShiftCode = v
		case "remarks":
			rec.Remarks = v
		case "operator_name":
			rec.OperatorName = v
		case "oee":
			rec.OEE = v
		case "reason_code":
			rec.ReasonCode = v
		case "loss_time_remark":
			rec.LossTimeRemark = v
		}
	}
	return false
}

// computeMetrics 用本行自己的清洗输入计算四项指标和班次类型。
// 指标函数本身是全函数，recover 只为把万一的缺陷隔离成文件级错误。
func computeMetrics(rec *domain.ProductionRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metric computation panic: %v", r)
		}
	}()

	output := 0.0
	if rec.OutputQuantity != nil {
		output = float64(*rec.OutputQuantity)
	}
	reject := 0.0
	if rec.RejectionQty != nil {
		reject = float64(*rec.RejectionQty)
	}

	rec.Availability = metrics.Availability(float64(rec.PlanTime), float64(rec.LossTime))
	rec.QualityRate = metrics.QualityRate(output, reject)
	rec.Performance = metrics.Performance(output, rec.CurrentCT, float64(rec.ActualRunTime))
	rec.OEENew = metrics.OEE(rec.Availability, rec.Performance, rec.QualityRate)
	rec.ShiftType = metrics.ShiftType(float64(rec.ActualRunTime))
	return nil
}
