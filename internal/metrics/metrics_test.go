package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"oee-ingestor/internal/domain"
)

func TestAvailability(t *testing.T) {
	tests := []struct {
		name string
		plan float64
		loss float64
		want float64
	}{
		{"standard shift", 28800, 3600, 87.5},
		{"zero plan", 0, 3600, 0},
		{"negative plan", -100, 0, 0},
		{"loss equals plan", 28800, 28800, 0},
		{"loss exceeds plan", 28800, 40000, 0},
		{"no loss", 28800, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Availability(tt.plan, tt.loss), 1e-9)
		})
	}
}

func TestQualityRate(t *testing.T) {
	tests := []struct {
		name   string
		output float64
		reject float64
		want   float64
	}{
		{"no output no rejects", 0, 0, 100},
		{"no output with rejects", 0, 5, 0},
		{"rejects exceed output", 100, 150, 0},
		{"ten percent rejected", 100, 10, 90},
		{"all rejected", 50, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, QualityRate(tt.output, tt.reject), 1e-9)
		})
	}
}

func TestPerformance_Uncapped(t *testing.T) {
	// 100 件 × 30s 理想节拍 / 2400s 运行 = 125%，不得封顶到 100
	require.InDelta(t, 125.0, Performance(100, 30, 2400), 1e-9)

	require.Equal(t, 0.0, Performance(0, 30, 2400))
	require.Equal(t, 0.0, Performance(100, 0, 2400))
	require.Equal(t, 0.0, Performance(100, 30, 0))
}

func TestOEE(t *testing.T) {
	// 0.8 × 1.25 × 0.9 × 100 = 90
	require.InDelta(t, 90.0, OEE(80, 125, 90), 1e-9)

	// availability/quality 比率封顶，performance 不封顶
	require.InDelta(t, 125.0, OEE(200, 125, 200), 1e-9)
	require.Equal(t, 0.0, OEE(0, 125, 90))

	// performance 足够高时 OEE 合法地超过 100
	require.Greater(t, OEE(100, 150, 100), 100.0)
}

func TestShiftType(t *testing.T) {
	require.Equal(t, domain.ShiftActive, ShiftType(1))
	require.Equal(t, domain.ShiftIdle, ShiftType(0))
	require.Equal(t, domain.ShiftIdle, ShiftType(-10))
}
