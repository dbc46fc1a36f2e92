// Package aggregator folds live outlet readings into the per-day log buckets
// the rest of the system works from, and detects physical disconnection.
package aggregator

import (
	"log"
	"sync"
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// UnplugThresholds configures disconnection detection.
type UnplugThresholds struct {
	// ZeroPowerSamples is how many consecutive near-zero readings while the
	// outlet is commanded on count as an unplug. Zero disables inference;
	// only explicit plugged=false reports trigger then.
	ZeroPowerSamples int
	// PowerEpsilonW is the "effectively zero" power threshold in watts.
	PowerEpsilonW float64
}

// outletState tracks the rolling context for one outlet between readings.
type outletState struct {
	lastSeen   time.Time
	zeroStreak int
	unplugged  *bool // last known state, nil until a report or inference lands
	mu         sync.Mutex
}

// Telemetry accumulates readings per outlet.
type Telemetry struct {
	outlets    map[string]*outletState
	thresholds UnplugThresholds
	mu         sync.Mutex
}

// NewTelemetry creates a telemetry aggregator.
func NewTelemetry(thresholds UnplugThresholds) *Telemetry {
	return &Telemetry{
		outlets:    make(map[string]*outletState),
		thresholds: thresholds,
	}
}

func (t *Telemetry) getOrCreate(outlet string) *outletState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.outlets[outlet]; ok {
		return s
	}
	s := &outletState{}
	t.outlets[outlet] = s
	return s
}

// Gaps between reports longer than this are not counted as usage time; the
// outlet was most likely offline.
const maxUsageGap = 10 * time.Minute

// Merge folds a reading into the outlet's current day bucket and returns the
// updated bucket. avg_power is kept consistent with total_energy and
// usage_time (the identity the limit-side correction checks against).
func (t *Telemetry) Merge(prev models.DailyLog, r *models.OutletReading) models.DailyLog {
	s := t.getOrCreate(r.Outlet)
	s.mu.Lock()
	defer s.mu.Unlock()

	next := prev
	next.TotalEnergy += r.EnergyKWh
	if r.PowerW > next.PeakPower {
		next.PeakPower = r.PowerW
	}
	if !s.lastSeen.IsZero() && r.PowerW > t.thresholds.PowerEpsilonW {
		gap := r.Timestamp.Sub(s.lastSeen)
		if gap > 0 && gap <= maxUsageGap {
			next.UsageTimeHours += gap.Hours()
		}
	}
	if next.UsageTimeHours > 0 {
		next.AvgPower = next.TotalEnergy * 1000.0 / next.UsageTimeHours
	}
	s.lastSeen = r.Timestamp
	return next
}

// UnplugVerdict reports whether this reading flips the outlet's unplug
// state. The bool pair is (changed, nowUnplugged). commandedOn matters: a
// dark outlet that was told to be off is off, not unplugged. Readings that
// restate the last known state report changed=false, so a steady stream of
// plugged=true telemetry produces no store writes.
func (t *Telemetry) UnplugVerdict(r *models.OutletReading, commandedOn bool) (bool, bool) {
	s := t.getOrCreate(r.Outlet)
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Plugged != nil {
		s.zeroStreak = 0
		return s.transition(!*r.Plugged)
	}

	if t.thresholds.ZeroPowerSamples <= 0 {
		return false, false
	}
	if commandedOn && r.PowerW <= t.thresholds.PowerEpsilonW {
		s.zeroStreak++
		if s.zeroStreak == t.thresholds.ZeroPowerSamples {
			log.Printf("Unplug inferred for %s after %d zero-power readings", r.Outlet, s.zeroStreak)
			return s.transition(true)
		}
		return false, false
	}
	recovered := s.zeroStreak >= t.thresholds.ZeroPowerSamples
	s.zeroStreak = 0
	if recovered {
		return s.transition(false)
	}
	return false, false
}

// transition records the new state and reports whether it differs from the
// last known one. An outlet first seen plugged in is not a change; the store
// flag defaults to absent.
func (s *outletState) transition(unplugged bool) (bool, bool) {
	changed := (s.unplugged == nil && unplugged) || (s.unplugged != nil && *s.unplugged != unplugged)
	s.unplugged = &unplugged
	return changed, unplugged
}
