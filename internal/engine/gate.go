package engine

import "github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"

// GateVerdict is the outcome of the manual-override check that runs before
// any limit or schedule evaluation.
type GateVerdict int

const (
	// GateAllow lets automatic control proceed.
	GateAllow GateVerdict = iota
	// GateUnplug suppresses automation and forces the outlet off with the
	// UNPLUG display status.
	GateUnplug
	// GateBypass suppresses automation entirely: the engine must not write
	// control.device for this outlet this cycle.
	GateBypass
)

// Gate checks the manual-override flags. Unplug outranks bypass: a device
// that is physically gone must read off/UNPLUG even if someone left the
// override switch on.
func Gate(dev *models.Device) GateVerdict {
	if dev.Unplugged() {
		return GateUnplug
	}
	if dev.Bypassed() {
		return GateBypass
	}
	return GateAllow
}
