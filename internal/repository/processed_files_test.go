package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oee-ingestor/internal/store"
)

func newTestLedger(t *testing.T) *ProcessedFilesLedger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewProcessedFilesLedger(store.NewRedisKV(client), zap.NewNop())
}

func TestLedger_RoundTrip(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	mtime := time.Unix(1700000000, 0)

	seen, err := ledger.AlreadyProcessed(ctx, "/uploads/prod_GRD.csv", mtime)
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, ledger.MarkProcessed(ctx, "/uploads/prod_GRD.csv", mtime))

	// 同一 (路径, mtime) 版本：跳过
	seen, err = ledger.AlreadyProcessed(ctx, "/uploads/prod_GRD.csv", mtime)
	require.NoError(t, err)
	require.True(t, seen)

	// 文件被重写（mtime 变化）：重新处理
	seen, err = ledger.AlreadyProcessed(ctx, "/uploads/prod_GRD.csv", mtime.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, seen)

	// 其它路径不受影响
	seen, err = ledger.AlreadyProcessed(ctx, "/uploads/other.csv", mtime)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestLedger_CorruptEntryTreatedAsUnprocessed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	kv := store.NewRedisKV(client)
	ledger := NewProcessedFilesLedger(kv, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "oee-ingestor:processed:/uploads/bad.csv", "not-a-timestamp", 0))

	seen, err := ledger.AlreadyProcessed(ctx, "/uploads/bad.csv", time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.False(t, seen)
}

func TestLedger_EntriesListsAllVersions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	kv := store.NewRedisKV(client)
	ledger := NewProcessedFilesLedger(kv, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, ledger.MarkProcessed(ctx, "/uploads/b_GRD.csv", time.Unix(1700000060, 0)))
	require.NoError(t, ledger.MarkProcessed(ctx, "/uploads/a_GRD.csv", time.Unix(1700000000, 0)))
	// 坏条目只跳过，不影响其余结果
	require.NoError(t, kv.Set(ctx, "oee-ingestor:processed:/uploads/bad.csv", "not-a-timestamp", 0))

	entries, err := ledger.Entries(ctx)
	require.NoError(t, err)
	require.Equal(t, []ProcessedEntry{
		{Path: "/uploads/a_GRD.csv", MTime: 1700000000},
		{Path: "/uploads/b_GRD.csv", MTime: 1700000060},
	}, entries)
}

func TestLedger_EntriesEmpty(t *testing.T) {
	ledger := newTestLedger(t)

	entries, err := ledger.Entries(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}
