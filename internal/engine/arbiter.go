package engine

import (
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/limits"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/schedule"
)

// Decision reasons, recorded on audit rows and ledger events.
const (
	ReasonBypass    = "bypass"
	ReasonUnplugged = "unplugged"
	ReasonLimit     = "limit_exceeded"
	ReasonSchedule  = "schedule"
	ReasonSteady    = "steady"
)

// Decision is the arbiter's verdict for one outlet on one evaluation cycle.
type Decision struct {
	Outlet string
	Prev   models.ControlState
	Next   models.ControlState

	// Write is true only when Next differs from Prev. Redundant writes are
	// the primary source of store quota exhaustion and relay flicker, so
	// the appliers treat Write=false as a hard no-op.
	Write bool

	// Suppressed means the engine may not touch control.device at all this
	// cycle (manual bypass).
	Suppressed bool

	// ForceStatus, when non-empty, is the root display status the document
	// must carry (UNPLUG for disconnected outlets).
	ForceStatus string

	// ClearBypass requests relay_control.main_status=OFF alongside a limit
	// cutoff, so a stale override flag cannot re-activate the outlet.
	ClearBypass bool

	Reason   string
	Regime   limits.Regime
	GroupKey string
	At       time.Time
}

// Decide runs the priority cascade for one outlet: override gate, then limit
// classification, then schedule. Each step short-circuits the rest. The
// function is pure; callers apply the writes.
//
// Re-running Decide on unchanged inputs yields the same verdict with
// Write=false once the state has converged, which is what makes concurrent
// uncoordinated evaluators safe.
func Decide(outletKey string, dev *models.Device, cls limits.Classification, now time.Time) Decision {
	current := dev.CurrentControl()
	d := Decision{
		Outlet: outletKey,
		Prev:   current,
		Next:   current,
		Regime: cls.Regime,
		At:     now,
	}

	switch Gate(dev) {
	case GateUnplug:
		d.Next = models.ControlOff
		d.Reason = ReasonUnplugged
		d.ForceStatus = models.StatusUnplug
		d.Write = current != models.ControlOff
		return d
	case GateBypass:
		d.Suppressed = true
		d.Reason = ReasonBypass
		return d
	}

	if cls.Exceeded {
		// A violated limit always wins; the schedule is not consulted.
		d.Next = models.ControlOff
		d.Reason = ReasonLimit
		d.GroupKey = cls.GroupKey
		d.ClearBypass = true
		d.Write = current != models.ControlOff
		return d
	}

	// The current control flag seeds the evaluation: a schedule-less device
	// keeps its state rather than defaulting off.
	if schedule.IsActive(dev.Schedule, current, now) {
		d.Next = models.ControlOn
	} else {
		d.Next = models.ControlOff
	}
	d.Write = d.Next != current
	if d.Write {
		d.Reason = ReasonSchedule
	} else {
		d.Reason = ReasonSteady
	}
	return d
}
