package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *Tracker, cid string, prices ...float64) {
	for _, p := range prices {
		t.Record(cid, p)
	}
}

func TestHasUptrend(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   bool
	}{
		{
			name:   "strictly increasing with enough rise",
			prices: []float64{0.20, 0.22, 0.24, 0.26},
			want:   true,
		},
		{
			name:   "tie invalidates even if total rise meets threshold",
			prices: []float64{0.20, 0.21, 0.21, 0.25},
			want:   false,
		},
		{
			name:   "decrease invalidates",
			prices: []float64{0.20, 0.24, 0.23, 0.27},
			want:   false,
		},
		{
			name:   "strictly increasing but rise below threshold",
			prices: []float64{0.20, 0.21, 0.22, 0.23},
			want:   false,
		},
		{
			name:   "rise exactly at threshold qualifies",
			prices: []float64{0.20, 0.22, 0.23, 0.25},
			want:   true,
		},
		{
			name:   "fewer observations than window",
			prices: []float64{0.20, 0.25, 0.30},
			want:   false,
		},
		{
			name: "only the last K observations matter",
			// caída antigua, ventana reciente limpia
			prices: []float64{0.30, 0.10, 0.20, 0.22, 0.24, 0.26},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(DefaultConfig())
			record(tr, "m1", tt.prices...)
			assert.Equal(t, tt.want, tr.HasUptrend("m1"))
		})
	}
}

func TestHasUptrendUnknownMarket(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	assert.False(t, tr.HasUptrend("nope"))
	assert.Equal(t, 0, tr.ObservationCount("nope"))
}

func TestRecordTrimsHistory(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	for i := 0; i < maxHistoryPerMarket+10; i++ {
		tr.Record("m1", 0.20)
	}
	assert.Equal(t, maxHistoryPerMarket, tr.ObservationCount("m1"))
}

func TestSnapshotAll(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	record(tr, "up", 0.20, 0.22, 0.24, 0.26)
	record(tr, "flat", 0.30, 0.30)

	snap := tr.SnapshotAll()
	require.Len(t, snap, 2)

	up := snap["up"]
	assert.Equal(t, 4, up.Observations)
	assert.InDelta(t, 0.20, up.FirstPrice, 1e-9)
	assert.InDelta(t, 0.26, up.LastPrice, 1e-9)
	assert.InDelta(t, 0.06, up.TotalRise, 1e-9)
	assert.True(t, up.HasUptrend)

	assert.False(t, snap["flat"].HasUptrend)
}

func TestPurgeStale(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	timeNow = func() time.Time { return current }
	defer func() { timeNow = time.Now }()

	tr := NewTracker(DefaultConfig())

	// Mercado con historial viejo pero última observación fresca: sobrevive.
	current = base.Add(-2 * time.Hour)
	tr.Record("fresh", 0.20)
	current = base
	tr.Record("fresh", 0.21)

	// Mercado cuya última observación es vieja: se purga entero.
	current = base.Add(-2 * time.Hour)
	tr.Record("stale", 0.20)
	tr.Record("stale", 0.25)

	current = base
	purged := tr.PurgeStale(time.Hour)

	assert.Equal(t, 1, purged)
	assert.Equal(t, 2, tr.ObservationCount("fresh"))
	assert.Equal(t, 0, tr.ObservationCount("stale"))
}
