package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/aggregator"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/store"
)

// patchCounting wraps the in-memory store and counts Patch calls per path.
type patchCounting struct {
	*store.Memory
	patches map[string]int
}

func (s *patchCounting) Patch(ctx context.Context, path string, fields map[string]any) error {
	s.patches[path]++
	return s.Memory.Patch(ctx, path, fields)
}

func TestProcessRollsUpDailyLog(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Seed([]byte(`{"devices": {"Outlet_1": {"control": {"device": "on"}}}}`)))

	agg := aggregator.NewTelemetry(aggregator.UnplugThresholds{PowerEpsilonW: 1})
	svc := NewTelemetryService(mem, agg, nil, make(chan *models.OutletReading, 1), "devices")

	at := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	svc.process(context.Background(), &models.OutletReading{Outlet: "Outlet_1", Timestamp: at, PowerW: 100, EnergyKWh: 0.05})
	svc.process(context.Background(), &models.OutletReading{Outlet: "Outlet_1", Timestamp: at.Add(6 * time.Minute), PowerW: 100, EnergyKWh: 0.01})

	raw, err := mem.Fetch(context.Background(), "devices/Outlet_1/daily_logs/day_2026_08_31")
	require.NoError(t, err)
	var bucket models.DailyLog
	found, err := store.Decode(raw, &bucket)
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 0.06, bucket.TotalEnergy, 1e-9)
	assert.InDelta(t, 0.1, bucket.UsageTimeHours, 1e-9)
	assert.InDelta(t, 100, bucket.PeakPower, 1e-9)
}

func TestProcessSkipsRedundantUnplugWrites(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Seed([]byte(`{"devices": {"Outlet_1": {"control": {"device": "on"}}}}`)))
	st := &patchCounting{Memory: mem, patches: make(map[string]int)}

	agg := aggregator.NewTelemetry(aggregator.UnplugThresholds{PowerEpsilonW: 1})
	svc := NewTelemetryService(st, agg, nil, make(chan *models.OutletReading, 1), "devices")

	at := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	plugged := true
	for i := 0; i < 5; i++ {
		r := &models.OutletReading{Outlet: "Outlet_1", Timestamp: at.Add(time.Duration(i) * time.Minute), PowerW: 80, EnergyKWh: 0.01, Plugged: &plugged}
		svc.process(context.Background(), r)
	}

	assert.Zero(t, st.patches["devices/Outlet_1/schedule"], "restated plugged state must not be written")

	// A real transition still lands exactly once.
	unplugged := false
	r := &models.OutletReading{Outlet: "Outlet_1", Timestamp: at.Add(10 * time.Minute), PowerW: 0, Plugged: &unplugged}
	svc.process(context.Background(), r)
	svc.process(context.Background(), r)
	assert.Equal(t, 1, st.patches["devices/Outlet_1/schedule"])
}

func TestProcessFlagsUnplug(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Seed([]byte(`{"devices": {"Outlet_1": {"control": {"device": "on"}}}}`)))

	agg := aggregator.NewTelemetry(aggregator.UnplugThresholds{ZeroPowerSamples: 2, PowerEpsilonW: 1})
	svc := NewTelemetryService(mem, agg, nil, make(chan *models.OutletReading, 1), "devices")

	at := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	svc.process(context.Background(), &models.OutletReading{Outlet: "Outlet_1", Timestamp: at, PowerW: 0})
	svc.process(context.Background(), &models.OutletReading{Outlet: "Outlet_1", Timestamp: at.Add(time.Minute), PowerW: 0})

	raw, err := mem.Fetch(context.Background(), "devices/Outlet_1/schedule/disabled_by_unplug")
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(raw))

	// Power back: the flag clears.
	svc.process(context.Background(), &models.OutletReading{Outlet: "Outlet_1", Timestamp: at.Add(2 * time.Minute), PowerW: 80, EnergyKWh: 0.01})
	raw, err = mem.Fetch(context.Background(), "devices/Outlet_1/schedule/disabled_by_unplug")
	require.NoError(t, err)
	assert.JSONEq(t, "false", string(raw))
}
