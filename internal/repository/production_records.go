package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"oee-ingestor/internal/domain"
)

// ProductionRecordsRepository 生产记录持久化网关
type ProductionRecordsRepository interface {
	EnsureSchema(ctx context.Context) error
	InsertBatch(ctx context.Context, records []*domain.ProductionRecord) (int, error)
	Count(ctx context.Context) (int64, error)
	Filter(ctx context.Context, f RecordFilter) ([]*domain.ProductionRecord, error)
	OEEErrors(ctx context.Context, f RecordFilter) ([]*domain.ProductionRecord, error)
}

// RecordFilter 报表侧查询条件。零值字段不参与过滤。
type RecordFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Machines  []string
	Shifts    []string
	Operators []string
	Limit     int
}

// PostgresProductionRecords ProductionRecordsRepository 的 Postgres 实现
type PostgresProductionRecords struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresProductionRecords 创建生产记录 Repository
func NewPostgresProductionRecords(db *sql.DB, logger *zap.Logger) *PostgresProductionRecords {
	return &PostgresProductionRecords{db: db, logger: logger}
}

var _ ProductionRecordsRepository = (*PostgresProductionRecords)(nil)

// EnsureSchema 建表（幂等）。列结构沿用 ERP 侧的 production_records_grd 命名。
func (r *PostgresProductionRecords) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS production_records_grd (
			id BIGSERIAL PRIMARY KEY,
			posting_date VARCHAR(20),
			document_no VARCHAR(255),
			order_no VARCHAR(255),
			item_no VARCHAR(255),
			operation_no BIGINT,
			operation_description VARCHAR(255),
			order_line_no BIGINT,
			type VARCHAR(50),
			machine_no VARCHAR(50),
			current_c_t DOUBLE PRECISION,
			output_quantity BIGINT,
			rejection_qty BIGINT,
			rejection_reason VARCHAR(255),
			rework_qty BIGINT,
			rework_reason VARCHAR(255),
			work_shift_code VARCHAR(50),
			start_time VARCHAR(10),
			end_time VARCHAR(10),
			plan_time BIGINT DEFAULT 0,
			actual_run_time BIGINT DEFAULT 0,
			loss_time BIGINT DEFAULT 0,
			remarks VARCHAR(500),
			operator_name VARCHAR(255),
			loss_time_should_be BIGINT DEFAULT 0,
			oee VARCHAR(255),
			reason_code VARCHAR(50),
			reason_time_hm BIGINT DEFAULT 0,
			loss_time_remark VARCHAR(500),
			availability DOUBLE PRECISION,
			quality_rate DOUBLE PRECISION,
			performance DOUBLE PRECISION,
			oee_new DOUBLE PRECISION,
			shift_type VARCHAR(10)
		);
		CREATE INDEX IF NOT EXISTS ix_prodrec_posting_date ON production_records_grd (posting_date);
		CREATE INDEX IF NOT EXISTS ix_prodrec_document_no ON production_records_grd (document_no);
		CREATE INDEX IF NOT EXISTS ix_prodrec_machine_no ON production_records_grd (machine_no);
		CREATE INDEX IF NOT EXISTS ix_prodrec_work_shift_code ON production_records_grd (work_shift_code);
		CREATE INDEX IF NOT EXISTS ix_prodrec_oee_new ON production_records_grd (oee_new);
	`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure production_records_grd schema: %w", err)
	}
	return nil
}

const insertColumns = `posting_date, document_no, order_no, item_no, operation_no,
		operation_description, order_line_no, type, machine_no, current_c_t,
		output_quantity, rejection_qty, rejection_reason, rework_qty, rework_reason,
		work_shift_code, start_time, end_time, plan_time, actual_run_time,
		loss_time, remarks, operator_name, loss_time_should_be, oee,
		reason_code, reason_time_hm, loss_time_remark,
		availability, quality_rate, performance, oee_new, shift_type`

// InsertBatch 整批插入一个文件的全部记录，单事务：全部成功提交，
// 任何一行失败整体回滚，调用方拿到的永远是 0 或 N。
func (r *PostgresProductionRecords) InsertBatch(ctx context.Context, records []*domain.ProductionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO production_records_grd (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33)
	`, insertColumns)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.PostingDate,
			rec.DocumentNo,
			rec.OrderNo,
			rec.ItemNo,
			rec.OperationNo,
			rec.OperationDescription,
			rec.OrderLineNo,
			rec.Type,
			rec.MachineNo,
			rec.CurrentCT,
			rec.OutputQuantity,
			rec.RejectionQty,
			rec.RejectionReason,
			rec.ReworkQty,
			rec.ReworkReason,
			rec.WorkShiftCode,
			rec.StartTime,
			rec.EndTime,
			rec.PlanTime,
			rec.ActualRunTime,
			rec.LossTime,
			rec.Remarks,
			rec.OperatorName,
			rec.LossTimeShouldBe,
			rec.OEE,
			rec.ReasonCode,
			rec.ReasonTimeHM,
			rec.LossTimeRemark,
			rec.Availability,
			rec.QualityRate,
			rec.Performance,
			rec.OEENew,
			rec.ShiftType,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record %d of %d: %w", i+1, len(records), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return len(records), nil
}

// Count 记录总数
func (r *PostgresProductionRecords) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM production_records_grd`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count production records: %w", err)
	}
	return count, nil
}

// Filter 报表查询：按日期区间/机台/班次/操作工过滤。
// posting_date 以 DD-MM-YYYY 文本存储，日期过滤用 to_date 转换，
// 空日期（解析失败的行）不参与有日期边界的查询。
func (r *PostgresProductionRecords) Filter(ctx context.Context, f RecordFilter) ([]*domain.ProductionRecord, error) {
	return r.filter(ctx, f, false)
}

// OEEErrors OEE 异常视图：Filter 加谓词 oee_new > 100。
// performance 未封顶导致的 >100 是业务要呈现的特性，不是数据缺陷。
func (r *PostgresProductionRecords) OEEErrors(ctx context.Context, f RecordFilter) ([]*domain.ProductionRecord, error) {
	return r.filter(ctx, f, true)
}

func (r *PostgresProductionRecords) filter(ctx context.Context, f RecordFilter, oeeErrorsOnly bool) ([]*domain.ProductionRecord, error) {
	query := fmt.Sprintf(`SELECT id, %s FROM production_records_grd WHERE 1=1`, insertColumns)
	args := []any{}
	argN := 1

	if !f.StartDate.IsZero() {
		query += fmt.Sprintf(" AND posting_date <> '' AND to_date(posting_date, 'DD-MM-YYYY') >= $%d", argN)
		args = append(args, f.StartDate)
		argN++
	}
	if !f.EndDate.IsZero() {
		query += fmt.Sprintf(" AND posting_date <> '' AND to_date(posting_date, 'DD-MM-YYYY') <= $%d", argN)
		args = append(args, f.EndDate)
		argN++
	}
	if len(f.Machines) > 0 {
		query += fmt.Sprintf(" AND machine_no = ANY($%d)", argN)
		args = append(args, pq.Array(f.Machines))
		argN++
	}
	if len(f.Shifts) > 0 {
		query += fmt.Sprintf(" AND work_shift_code = ANY($%d)", argN)
		args = append(args, pq.Array(f.Shifts))
		argN++
	}
	if len(f.Operators) > 0 {
		query += fmt.Sprintf(" AND operator_name = ANY($%d)", argN)
		args = append(args, pq.Array(f.Operators))
		argN++
	}
	if oeeErrorsOnly {
		query += " AND oee_new > 100"
	}

	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query production records: %w", err)
	}
	defer rows.Close()

	var records []*domain.ProductionRecord
	for rows.Next() {
		rec := &domain.ProductionRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.PostingDate,
			&rec.DocumentNo,
			&rec.OrderNo,
			&rec.ItemNo,
			&rec.OperationNo,
			&rec.OperationDescription,
			&rec.OrderLineNo,
			&rec.Type,
			&rec.MachineNo,
			&rec.CurrentCT,
			&rec.OutputQuantity,
			&rec.RejectionQty,
			&rec.RejectionReason,
			&rec.ReworkQty,
			&rec.ReworkReason,
			&rec.WorkShiftCode,
			&rec.StartTime,
			&rec.EndTime,
			&rec.PlanTime,
			&rec.ActualRunTime,
			&rec.LossTime,
			&rec.Remarks,
			&rec.OperatorName,
			&rec.LossTimeShouldBe,
			&rec.OEE,
			&rec.ReasonCode,
			&rec.ReasonTimeHM,
			&rec.LossTimeRemark,
			&rec.Availability,
			&rec.QualityRate,
			&rec.Performance,
			&rec.OEENew,
			&rec.ShiftType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan production record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate production records: %w", err)
	}
	return records, nil
}
