// Package energy sums per-day outlet logs over date windows. Sums that feed
// a limit decision apply the runtime-consistency correction; display and
// billing sums take the logged figures as-is.
package energy

import (
	"math"
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// Correction thresholds for sensor-glitch mitigation. A logged energy figure
// is distrusted when it disagrees with avg_power * usage_time by more than
// 5% relative and more than correctionEpsilon kWh absolute.
const (
	correctionAccuracy = 0.95
	correctionEpsilon  = 0.001
)

// Mode selects whether a sum applies the runtime-consistency correction.
type Mode int

const (
	// Logged uses total_energy exactly as recorded.
	Logged Mode = iota
	// Corrected substitutes avg_power*usage_time when the recorded figure
	// fails the consistency check. Every limit decision uses this mode.
	Corrected
)

// DayEnergy returns one day's energy contribution under the given mode.
func DayEnergy(l models.DailyLog, mode Mode) KilowattHours {
	if mode == Logged {
		return KilowattHours(l.TotalEnergy)
	}
	if l.UsageTimeHours <= 0 || l.AvgPower <= 0 {
		return KilowattHours(l.TotalEnergy)
	}
	expected := l.AvgPower * l.UsageTimeHours / 1000.0
	measured := l.TotalEnergy
	if math.Abs(expected-measured) <= correctionEpsilon {
		return KilowattHours(measured)
	}
	lo, hi := math.Min(measured, expected), math.Max(measured, expected)
	if hi > 0 && lo/hi < correctionAccuracy {
		return KilowattHours(expected)
	}
	return KilowattHours(measured)
}

// Sum adds the contributions of the given date keys. Missing keys contribute
// zero; that is the accepted degradation, not an error.
func Sum(logs map[string]models.DailyLog, keys []string, mode Mode) KilowattHours {
	var total KilowattHours
	for _, k := range keys {
		if l, ok := logs[k]; ok {
			total += DayEnergy(l, mode)
		}
	}
	return total
}

// Today returns the energy recorded for now's calendar day.
func Today(logs map[string]models.DailyLog, now time.Time, mode Mode) KilowattHours {
	return Sum(logs, []string{DateKey(now)}, mode)
}

// MonthToDate returns the energy recorded from the first of now's month
// through now's day, inclusive.
func MonthToDate(logs map[string]models.DailyLog, now time.Time, mode Mode) KilowattHours {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Range(logs, first, now, mode)
}

// Range sums every day from start through end inclusive. Days without a log
// entry contribute zero; there is no interpolation.
func Range(logs map[string]models.DailyLog, start, end time.Time, mode Mode) KilowattHours {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		keys = append(keys, DateKey(d))
	}
	return Sum(logs, keys, mode)
}
