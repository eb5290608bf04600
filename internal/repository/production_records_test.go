package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oee-ingestor/internal/domain"
)

func intPtr(v int64) *int64 { return &v }

func sampleRecord() *domain.ProductionRecord {
	return &domain.ProductionRecord{
		PostingDate:    "15-03-2024",
		MachineNo:      "CNC-01",
		WorkShiftCode:  "A",
		OperatorName:   "Ramesh",
		PlanTime:       28800,
		LossTime:       3600,
		ActualRunTime:  2400,
		CurrentCT:      30,
		OutputQuantity: intPtr(100),
		RejectionQty:   intPtr(10),
		Availability:   87.5,
		QualityRate:    90,
		Performance:    125,
		OEENew:         98.4375,
		ShiftType:      domain.ShiftActive,
	}
}

func TestInsertBatch_CommitsAllRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO production_records_grd`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := repo.InsertBatch(context.Background(), []*domain.ProductionRecord{sampleRecord(), sampleRecord()})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_RollsBackOnMidBatchFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO production_records_grd`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	n, err := repo.InsertBatch(context.Background(), []*domain.ProductionRecord{sampleRecord(), sampleRecord()})
	require.Error(t, err)
	require.Equal(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_EmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	// 空批不应触碰数据库
	n, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM production_records_grd`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), count)
}

func recordColumns() []string {
	return []string{
		"id", "posting_date", "document_no", "order_no", "item_no", "operation_no",
		"operation_description", "order_line_no", "type", "machine_no", "current_c_t",
		"output_quantity", "rejection_qty", "rejection_reason", "rework_qty", "rework_reason",
		"work_shift_code", "start_time", "end_time", "plan_time", "actual_run_time",
		"loss_time", "remarks", "operator_name", "loss_time_should_be", "oee",
		"reason_code", "reason_time_hm", "loss_time_remark",
		"availability", "quality_rate", "performance", "oee_new", "shift_type",
	}
}

func addSampleRow(rows *sqlmock.Rows, id int64, postingDate string, oeeNew float64) *sqlmock.Rows {
	return rows.AddRow(
		id, postingDate, "DOC-1", "ORD-1", "ITM-1", int64(10),
		"Turning", nil, "Output", "CNC-01", 30.0,
		int64(100), int64(10), "", nil, "",
		"A", "08:00", "16:00", int64(28800), int64(2400),
		int64(3600), "", "Ramesh", int64(0), "",
		"", int64(0), "",
		87.5, 90.0, 125.0, oeeNew, "Active",
	)
}

func TestFilter_DateRangeAndMachines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	rows := addSampleRow(sqlmock.NewRows(recordColumns()), 1, "15-03-2024", 98.4375)
	mock.ExpectQuery(`to_date\(posting_date, 'DD-MM-YYYY'\) >= \$1.*to_date\(posting_date, 'DD-MM-YYYY'\) <= \$2.*machine_no = ANY\(\$3\)`).
		WithArgs(start, end, sqlmock.AnyArg()).
		WillReturnRows(rows)

	records, err := repo.Filter(context.Background(), RecordFilter{
		StartDate: start,
		EndDate:   end,
		Machines:  []string{"CNC-01"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "15-03-2024", records[0].PostingDate)
	require.Equal(t, "CNC-01", records[0].MachineNo)
	require.NotNil(t, records[0].OutputQuantity)
	require.Equal(t, int64(100), *records[0].OutputQuantity)
	require.Nil(t, records[0].OrderLineNo)
}

func TestOEEErrors_AddsPredicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	rows := addSampleRow(sqlmock.NewRows(recordColumns()), 7, "15-03-2024", 112.5)
	mock.ExpectQuery(`oee_new > 100`).WillReturnRows(rows)

	records, err := repo.OEEErrors(context.Background(), RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Greater(t, records[0].OEENew, 100.0)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProductionRecords(db, zap.NewNop())

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS production_records_grd`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
