// Package engine is the autonomous outlet-control decision engine. On a
// polling cadence it re-derives, for every outlet, whether the relay should
// be on or off (manual overrides first, then combined and individual energy
// limits, then schedules) and writes back only decisions that change state.
//
// Evaluation is stateless re-derivation from a fresh snapshot each tick, so
// any number of concurrent engine instances converge on the same answer;
// last-write-wins races between them are redundant, not conflicting.
package engine

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/limits"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/outlet"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/store"
)

// Config holds the engine's store layout and cadences.
type Config struct {
	DevicesPath string // e.g. "devices"
	GroupsPath  string // e.g. "combined_limit_settings"

	// ScheduleInterval drives the fast sweep (gate + cached limits +
	// schedule). LimitInterval drives the full sweep that also recomputes
	// monthly aggregates and group enforcement.
	ScheduleInterval time.Duration
	LimitInterval    time.Duration
}

// Commander mirrors applied control decisions to the relay firmware.
type Commander interface {
	SendRelayCommand(ctx context.Context, outletKey string, state models.ControlState, reason string) error
}

// Recorder archives applied decisions (historian audit trail).
type Recorder interface {
	RecordDecision(ctx context.Context, d Decision) error
}

// Ledger publishes decision and enforcement events for downstream consumers.
type Ledger interface {
	EmitDecision(ctx context.Context, d Decision) error
	EmitGroupEvent(ctx context.Context, ev GroupEvent) error
}

// Stats is a snapshot of the engine counters, served by the status API.
type Stats struct {
	Sweeps     int64 `json:"sweeps"`
	FullSweeps int64 `json:"full_sweeps"`
	Decisions  int64 `json:"decisions"`
	Writes     int64 `json:"writes"`
	Suppressed int64 `json:"suppressed"`
	Errors     int64 `json:"errors"`
}

type counters struct {
	sweeps     atomic.Int64
	fullSweeps atomic.Int64
	decisions  atomic.Int64
	writes     atomic.Int64
	suppressed atomic.Int64
	errors     atomic.Int64
}

// Engine owns the polling loop and all writes to the shared store.
type Engine struct {
	store store.Store
	cfg   Config

	// Optional sinks; nil disables the concern without affecting control.
	commander Commander
	recorder  Recorder
	ledger    Ledger

	clock func() time.Time

	mu    sync.RWMutex
	cache map[string]limits.Classification // canonical outlet key -> last full-sweep verdict
	last  map[string]Decision              // outlet key -> last decision, for the API

	stats counters
}

// New creates an engine over the given store. Commander, Recorder and Ledger
// are attached separately because every one of them is optional.
func New(st store.Store, cfg Config) *Engine {
	if cfg.DevicesPath == "" {
		cfg.DevicesPath = "devices"
	}
	if cfg.GroupsPath == "" {
		cfg.GroupsPath = "combined_limit_settings"
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = 15 * time.Second
	}
	if cfg.LimitInterval <= 0 {
		cfg.LimitInterval = 60 * time.Second
	}
	return &Engine{
		store: st,
		cfg:   cfg,
		clock: time.Now,
		cache: make(map[string]limits.Classification),
		last:  make(map[string]Decision),
	}
}

// SetCommander attaches the relay command sink.
func (e *Engine) SetCommander(c Commander) { e.commander = c }

// SetRecorder attaches the audit sink.
func (e *Engine) SetRecorder(r Recorder) { e.recorder = r }

// SetLedger attaches the event ledger sink.
func (e *Engine) SetLedger(l Ledger) { e.ledger = l }

// SetClock overrides the wall clock. Test hook.
func (e *Engine) SetClock(fn func() time.Time) { e.clock = fn }

// Run polls until ctx is cancelled: a full sweep immediately, then fast
// sweeps on the schedule cadence and full sweeps on the limit cadence.
// Teardown stops both tickers; an in-flight sweep completes and its result
// is discarded with the context.
func (e *Engine) Run(ctx context.Context) {
	log.Printf("Control engine starting (schedule sweep %s, limit sweep %s)", e.cfg.ScheduleInterval, e.cfg.LimitInterval)

	e.Sweep(ctx, true)

	scheduleTick := time.NewTicker(e.cfg.ScheduleInterval)
	limitTick := time.NewTicker(e.cfg.LimitInterval)
	defer scheduleTick.Stop()
	defer limitTick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Control engine shutting down")
			return
		case <-limitTick.C:
			e.Sweep(ctx, true)
		case <-scheduleTick.C:
			e.Sweep(ctx, false)
		}
	}
}

// Sweep evaluates every outlet once. A full sweep recomputes limit
// classifications and group enforcement first; a fast sweep reuses the
// classifications cached by the last full sweep.
//
// A fetch failure skips the tick for the affected scope and is healed by the
// next tick; polling is the retry mechanism.
func (e *Engine) Sweep(ctx context.Context, full bool) {
	devices, err := e.fetchDevices(ctx)
	if err != nil {
		log.Printf("Error fetching devices, skipping sweep: %v", err)
		e.stats.errors.Add(1)
		return
	}

	if full {
		raw, err := e.store.Fetch(ctx, e.cfg.GroupsPath)
		if err != nil {
			log.Printf("Error fetching combined limit settings, skipping limit sweep: %v", err)
			e.stats.errors.Add(1)
			return
		}
		groups := e.enforceGroups(ctx, parseGroups(raw), devices)

		// Enforcement may have written device-adjacent state; re-fetch so
		// the schedule stage below never overrides a cutoff with stale data.
		devices, err = e.fetchDevices(ctx)
		if err != nil {
			log.Printf("Error re-fetching devices after enforcement, skipping sweep: %v", err)
			e.stats.errors.Add(1)
			return
		}

		now := e.clock()
		cache := make(map[string]limits.Classification, len(devices))
		for key, dev := range devices {
			d := dev
			cache[outlet.Canonical(key)] = limits.Classify(key, &d, groups, devices, now)
		}
		e.mu.Lock()
		e.cache = cache
		e.mu.Unlock()
		e.stats.fullSweeps.Add(1)
	}

	now := e.clock()
	for _, key := range sortedKeys(devices) {
		dev := devices[key]
		cls := e.classification(key)
		d := Decide(key, &dev, cls, now)
		e.apply(ctx, d, &dev)
	}
	e.stats.sweeps.Add(1)
}

func (e *Engine) fetchDevices(ctx context.Context) (map[string]models.Device, error) {
	raw, err := e.store.Fetch(ctx, e.cfg.DevicesPath)
	if err != nil {
		return nil, err
	}
	devices := make(map[string]models.Device)
	if _, err := store.Decode(raw, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (e *Engine) classification(outletKey string) limits.Classification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cache[outlet.Canonical(outletKey)]
}

// apply performs the writes a decision calls for. Every write is idempotent
// (skipped when the stored value already matches) and failure-isolated: one
// outlet's write error never aborts the rest of the sweep.
func (e *Engine) apply(ctx context.Context, d Decision, dev *models.Device) {
	e.stats.decisions.Add(1)
	defer e.remember(d)

	if d.Suppressed {
		e.stats.suppressed.Add(1)
		return
	}

	devPath := e.cfg.DevicesPath + "/" + d.Outlet

	if d.Write {
		if err := e.store.Patch(ctx, devPath+"/control", map[string]any{"device": string(d.Next)}); err != nil {
			log.Printf("Error writing control state for %s: %v", d.Outlet, err)
			e.stats.errors.Add(1)
			return
		}
		e.stats.writes.Add(1)
		log.Printf("Outlet %s: %s -> %s (%s)", d.Outlet, d.Prev, d.Next, d.Reason)
		e.fanOut(ctx, d)
	}

	if d.ClearBypass && dev.RelayControl.MainStatus != models.MainStatusOff {
		if err := e.store.Patch(ctx, devPath+"/relay_control", map[string]any{"main_status": models.MainStatusOff}); err != nil {
			log.Printf("Error clearing bypass flag for %s: %v", d.Outlet, err)
			e.stats.errors.Add(1)
		}
	}

	// Keep the denormalized root status loosely in sync.
	wantStatus := d.ForceStatus
	if wantStatus == "" && d.Write {
		wantStatus = models.StatusOff
		if d.Next == models.ControlOn {
			wantStatus = models.StatusOn
		}
	}
	if wantStatus != "" && dev.Status != wantStatus {
		if err := e.store.Patch(ctx, devPath, map[string]any{"status": wantStatus}); err != nil {
			log.Printf("Error updating status for %s: %v", d.Outlet, err)
			e.stats.errors.Add(1)
		}
	}
}

// fanOut mirrors an applied write to the optional sinks. All best-effort: a
// sink failure is logged and counted, never propagated.
func (e *Engine) fanOut(ctx context.Context, d Decision) {
	if e.commander != nil {
		if err := e.commander.SendRelayCommand(ctx, d.Outlet, d.Next, d.Reason); err != nil {
			log.Printf("Error sending relay command for %s: %v", d.Outlet, err)
			e.stats.errors.Add(1)
		}
	}
	if e.recorder != nil {
		if err := e.recorder.RecordDecision(ctx, d); err != nil {
			log.Printf("Error recording decision for %s: %v", d.Outlet, err)
			e.stats.errors.Add(1)
		}
	}
	if e.ledger != nil {
		if err := e.ledger.EmitDecision(ctx, d); err != nil {
			log.Printf("Error publishing decision event for %s: %v", d.Outlet, err)
			e.stats.errors.Add(1)
		}
	}
}

func (e *Engine) emitGroupEvent(ctx context.Context, ev GroupEvent) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.EmitGroupEvent(ctx, ev); err != nil {
		log.Printf("Error publishing group event for %q: %v", ev.Group, err)
		e.stats.errors.Add(1)
	}
}

func (e *Engine) remember(d Decision) {
	e.mu.Lock()
	e.last[d.Outlet] = d
	e.mu.Unlock()
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Sweeps:     e.stats.sweeps.Load(),
		FullSweeps: e.stats.fullSweeps.Load(),
		Decisions:  e.stats.decisions.Load(),
		Writes:     e.stats.writes.Load(),
		Suppressed: e.stats.suppressed.Load(),
		Errors:     e.stats.errors.Load(),
	}
}

// LastDecisions returns the most recent decision per outlet, sorted by key.
func (e *Engine) LastDecisions() []Decision {
	e.mu.RLock()
	out := make([]Decision, 0, len(e.last))
	for _, d := range e.last {
		out = append(out, d)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Outlet < out[j].Outlet })
	return out
}

func sortedKeys(devices map[string]models.Device) []string {
	keys := make([]string, 0, len(devices))
	for k := range devices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
