// Package limits decides which enforcement regime applies to an outlet and
// whether that regime's threshold is currently exceeded. Month-to-date
// energy is the comparison basis for both regimes; limit-feeding sums use
// the runtime-consistency correction.
package limits

import (
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/energy"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/outlet"
)

// Regime identifies which limit applies to an outlet.
type Regime int

const (
	Individual Regime = iota
	Grouped
)

func (r Regime) String() string {
	if r == Grouped {
		return "grouped"
	}
	return "individual"
}

// Classification is the verdict for one outlet at one instant.
type Classification struct {
	Regime    Regime
	Exceeded  bool
	Threshold energy.Watts
	Usage     energy.KilowattHours

	// GroupKey names the enabled group the outlet belongs to, empty for the
	// individual regime.
	GroupKey string
}

// GroupFor returns the key and document of the enabled group the outlet
// belongs to. Membership lists hold display names while device documents use
// underscore keys; comparison goes through outlet.Canonical on both sides.
func GroupFor(outletKey string, groups map[string]models.CombinedLimitGroup) (string, *models.CombinedLimitGroup) {
	for key, g := range groups {
		if !g.Enabled {
			continue
		}
		for _, member := range g.SelectedOutlets {
			if outlet.Same(member, outletKey) {
				grp := g
				return key, &grp
			}
		}
	}
	return "", nil
}

// GroupUsage sums month-to-date energy across a group's members,
// deduplicated by canonical key. Members with no matching device document
// contribute zero.
func GroupUsage(g *models.CombinedLimitGroup, devices map[string]models.Device, now time.Time) energy.KilowattHours {
	seen := make(map[string]bool)
	var total energy.KilowattHours
	for _, member := range g.SelectedOutlets {
		canon := outlet.Canonical(member)
		if canon == "" || seen[canon] {
			continue
		}
		seen[canon] = true
		for key, dev := range devices {
			if outlet.Canonical(key) == canon {
				total += energy.MonthToDate(dev.DailyLogs, now, energy.Corrected)
				break
			}
		}
	}
	return total
}

// Classify determines the enforcement regime for one outlet and evaluates
// its threshold. An enabled group always supersedes the outlet's own
// power_limit.
func Classify(outletKey string, dev *models.Device, groups map[string]models.CombinedLimitGroup, devices map[string]models.Device, now time.Time) Classification {
	if key, g := GroupFor(outletKey, groups); g != nil {
		c := Classification{Regime: Grouped, GroupKey: key}
		c.Usage = GroupUsage(g, devices, now)
		if g.CombinedLimit.Unlimited {
			return c
		}
		c.Threshold = energy.Watts(g.CombinedLimit.Watts)
		// Inclusive boundary: usage equal to the cap is a violation.
		c.Exceeded = c.Usage >= c.Threshold.AsEnergyThreshold()
		return c
	}

	c := Classification{Regime: Individual}
	if dev != nil {
		c.Usage = energy.MonthToDate(dev.DailyLogs, now, energy.Corrected)
		// Unlike the group cap, power_limit is already in the kWh scale of
		// the daily logs; no watt conversion here.
		if limit := dev.RelayControl.AutoCutoff.PowerLimit; limit > 0 {
			c.Threshold = energy.KilowattHours(limit).Threshold()
			c.Exceeded = c.Usage >= energy.KilowattHours(limit)
		}
	}
	return c
}
