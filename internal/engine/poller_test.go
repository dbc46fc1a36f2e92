package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/store"
)

// Monday noon inside a 09:00-17:00 window.
var sweepNow = time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, seed string) (*Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.Seed([]byte(seed)))
	e := New(mem, Config{})
	e.SetClock(func() time.Time { return sweepNow })
	return e, mem
}

func fetchDevice(t *testing.T, mem *store.Memory, key string) models.Device {
	t.Helper()
	raw, err := mem.Fetch(context.Background(), "devices/"+key)
	require.NoError(t, err)
	var dev models.Device
	found, err := store.Decode(raw, &dev)
	require.NoError(t, err)
	require.True(t, found, "device %s missing", key)
	return dev
}

func TestSweepConvergesAndStaysIdle(t *testing.T) {
	e, _ := newTestEngine(t, `{
		"devices": {
			"Outlet_1": {
				"control": {"device": "on"},
				"schedule": {"startTime": "09:00", "endTime": "17:00"}
			},
			"Outlet_3": {
				"control": {"device": "on"}
			}
		}
	}`)

	e.Sweep(context.Background(), true)
	stats := e.Stats()
	assert.EqualValues(t, 0, stats.Writes, "already-converged state must produce no writes")

	e.Sweep(context.Background(), true)
	assert.EqualValues(t, 0, e.Stats().Writes)
}

func TestSweepSchedulesOff(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_1": {
				"control": {"device": "on"},
				"status": "ON",
				"schedule": {"startTime": "13:00", "endTime": "14:00"}
			}
		}
	}`)

	e.Sweep(context.Background(), false)

	dev := fetchDevice(t, mem, "Outlet_1")
	assert.Equal(t, models.ControlOff, dev.Control.Device)
	assert.Equal(t, models.StatusOff, dev.Status)
	assert.EqualValues(t, 1, e.Stats().Writes)

	// Second sweep: converged, no further writes.
	e.Sweep(context.Background(), false)
	assert.EqualValues(t, 1, e.Stats().Writes)
}

func TestSweepEnforcesGroupLimit(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_1": {
				"control": {"device": "on"},
				"daily_logs": {"day_2026_08_10": {"total_energy": 1.2}}
			},
			"Outlet_2": {
				"control": {"device": "on"},
				"daily_logs": {"day_2026_08_11": {"total_energy": 0.5}}
			},
			"Outlet_3": {
				"control": {"device": "on"},
				"daily_logs": {"day_2026_08_12": {"total_energy": 0.3}}
			}
		},
		"combined_limit_settings": {
			"enabled": true,
			"selected_outlets": ["Outlet 1", "Outlet 2", "Outlet 3"],
			"combined_limit_watts": 2000,
			"device_control": "on"
		}
	}`)

	e.Sweep(context.Background(), true)

	for _, key := range []string{"Outlet_1", "Outlet_2", "Outlet_3"} {
		dev := fetchDevice(t, mem, key)
		assert.Equal(t, models.ControlOff, dev.Control.Device, "%s must be cut off", key)
		assert.Equal(t, models.MainStatusOff, dev.RelayControl.MainStatus)
	}

	raw, err := mem.Fetch(context.Background(), "combined_limit_settings")
	require.NoError(t, err)
	var g models.CombinedLimitGroup
	_, err = store.Decode(raw, &g)
	require.NoError(t, err)
	assert.Equal(t, models.GroupControlOff, g.DeviceControl)
	assert.NotEmpty(t, g.EnforcementReason)
	assert.NotEmpty(t, g.LastEnforcement)
}

func TestSweepGroupRecovery(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_1": {
				"control": {"device": "off"},
				"daily_logs": {"day_2026_08_10": {"total_energy": 0.1}}
			}
		},
		"combined_limit_settings": {
			"enabled": true,
			"selected_outlets": ["Outlet 1"],
			"combined_limit_watts": 2000,
			"device_control": "off",
			"enforcement_reason": "combined monthly limit reached"
		}
	}`)

	e.Sweep(context.Background(), true)

	raw, err := mem.Fetch(context.Background(), "combined_limit_settings")
	require.NoError(t, err)
	var g models.CombinedLimitGroup
	_, err = store.Decode(raw, &g)
	require.NoError(t, err)
	assert.Equal(t, models.GroupControlOn, g.DeviceControl)
	assert.Empty(t, g.EnforcementReason)
}

func TestSweepBypassedDeviceUntouched(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_5": {
				"control": {"device": "on"},
				"relay_control": {"main_status": "ON", "auto_cutoff": {"power_limit": 0.1}},
				"daily_logs": {"day_2026_08_10": {"total_energy": 5.0}},
				"schedule": {"startTime": "01:00", "endTime": "02:00"}
			}
		}
	}`)

	e.Sweep(context.Background(), true)

	dev := fetchDevice(t, mem, "Outlet_5")
	assert.Equal(t, models.ControlOn, dev.Control.Device, "bypassed device must not be written")
	assert.EqualValues(t, 0, e.Stats().Writes)
	assert.EqualValues(t, 1, e.Stats().Suppressed)
}

func TestSweepUnplugForcesState(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_2": {
				"control": {"device": "on"},
				"status": "ON",
				"schedule": {"startTime": "09:00", "endTime": "17:00", "disabled_by_unplug": true}
			}
		}
	}`)

	e.Sweep(context.Background(), false)

	dev := fetchDevice(t, mem, "Outlet_2")
	assert.Equal(t, models.ControlOff, dev.Control.Device)
	assert.Equal(t, models.StatusUnplug, dev.Status)
}

func TestSweepNoLimitGroup(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_5": {
				"control": {"device": "on"},
				"daily_logs": {"day_2026_08_10": {"total_energy": 99999}}
			}
		},
		"combined_limit_settings": {
			"enabled": true,
			"selected_outlets": ["Outlet 5"],
			"combined_limit_watts": "No Limit"
		}
	}`)

	e.Sweep(context.Background(), true)

	dev := fetchDevice(t, mem, "Outlet_5")
	assert.Equal(t, models.ControlOn, dev.Control.Device, "No Limit group must not cut off")
	assert.EqualValues(t, 0, e.Stats().Writes)
}

func TestSweepPrunesDeadMembers(t *testing.T) {
	e, mem := newTestEngine(t, `{
		"devices": {
			"Outlet_1": {"control": {"device": "on"}}
		},
		"combined_limit_settings": {
			"enabled": true,
			"selected_outlets": ["Outlet 1", "Outlet 9"],
			"combined_limit_watts": "No Limit"
		}
	}`)

	e.Sweep(context.Background(), true)

	raw, err := mem.Fetch(context.Background(), "combined_limit_settings")
	require.NoError(t, err)
	var g models.CombinedLimitGroup
	_, err = store.Decode(raw, &g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Outlet 1"}, g.SelectedOutlets)
}

func TestRunTeardown(t *testing.T) {
	e, _ := newTestEngine(t, `{"devices": {}}`)
	e.cfg.ScheduleInterval = 5 * time.Millisecond
	e.cfg.LimitInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop on context cancellation")
	}
	assert.Greater(t, e.Stats().Sweeps, int64(1))
}
