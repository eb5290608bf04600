package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oee-ingestor/internal/domain"
	"oee-ingestor/internal/materialize"
	"oee-ingestor/internal/notify"
)

// fakeInserter 内存持久化假实现，记录落库行数
type fakeInserter struct {
	inserted []*domain.ProductionRecord
	failWith error
}

func (f *fakeInserter) InsertBatch(_ context.Context, records []*domain.ProductionRecord) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.inserted = append(f.inserted, records...)
	return len(records), nil
}

type fakeNotifier struct {
	events []notify.Event
}

func (f *fakeNotifier) NotifyResult(_ context.Context, ev notify.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const goodCSV = "Posting Date,Machine No,Plan Time,Loss Time,Actual Run Time,CurrentCT,Output Quantity,Rejection Qty\n" +
	"15-03-2024,CNC-01,08:00:00,01:00:00,2400,30,100,10\n"

func TestProcessFile_Success(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "prod_GRD.csv", goodCSV)

	inserter := &fakeInserter{}
	notifier := &fakeNotifier{}
	svc := NewIngestService(materialize.NewMaterializer(zap.NewNop()), inserter, notifier, zap.NewNop())

	count, err := svc.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, inserter.inserted, 1)
	require.InDelta(t, 87.5, inserter.inserted[0].Availability, 1e-9)

	require.Len(t, notifier.events, 1)
	require.True(t, notifier.events[0].Success)
	require.Equal(t, 1, notifier.events[0].Inserted)
	require.NotEmpty(t, notifier.events[0].JobID)
}

func TestProcessFile_NotFoundClassified(t *testing.T) {
	inserter := &fakeInserter{}
	svc := NewIngestService(materialize.NewMaterializer(zap.NewNop()), inserter, nil, zap.NewNop())

	_, err := svc.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.ErrNotFound, kind)
	require.Empty(t, inserter.inserted)
}

func TestProcessFile_StorageFailureClassified(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "prod_GRD.csv", goodCSV)

	inserter := &fakeInserter{failWith: errors.New("connection reset")}
	notifier := &fakeNotifier{}
	svc := NewIngestService(materialize.NewMaterializer(zap.NewNop()), inserter, notifier, zap.NewNop())

	_, err := svc.ProcessFile(context.Background(), path)
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.ErrStorage, kind)

	require.Len(t, notifier.events, 1)
	require.False(t, notifier.events[0].Success)
	require.Equal(t, "storage_error", notifier.events[0].Reason)
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good_GRD.csv", goodCSV)
	missing := filepath.Join(dir, "missing.csv")
	good2 := writeCSV(t, dir, "good2_GRD.csv", goodCSV)

	inserter := &fakeInserter{}
	svc := NewIngestService(materialize.NewMaterializer(zap.NewNop()), inserter, nil, zap.NewNop())

	summary := svc.ProcessBatch(context.Background(), []string{good, missing, good2})
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Succeeded)
	require.Len(t, summary.Results, 3)

	// 中间文件失败不影响后续文件
	require.True(t, summary.Results[0].Success)
	require.False(t, summary.Results[1].Success)
	require.Equal(t, "not_found", summary.Results[1].Reason)
	require.True(t, summary.Results[2].Success)
	require.Len(t, inserter.inserted, 2)

	// File 只带文件名，Path 保留完整输入路径供台账记账
	require.Equal(t, "good_GRD.csv", summary.Results[0].File)
	require.Equal(t, good, summary.Results[0].Path)
	require.Equal(t, missing, summary.Results[1].Path)
}

func TestAllowedFile(t *testing.T) {
	require.True(t, AllowedFile("prod_GRD.csv"))
	require.True(t, AllowedFile("prod_GRD.XLSX"))
	require.False(t, AllowedFile("prod_GRD.txt"))
	require.False(t, AllowedFile(".hidden.csv"))
	require.False(t, AllowedFile("noext"))
}
