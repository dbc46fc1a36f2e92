// Package billing estimates electricity cost from the same daily logs the
// limit math reads. Billing sums use the logged figures as-is, without the
// limit-side consistency correction: the invoice should match what the meter
// recorded, glitches included.
package billing

import (
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/energy"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// Tariff is a flat per-kWh rate.
type Tariff struct {
	RatePerKWh float64
	Currency   string
}

// Estimate is the cost of a quantity of energy under a tariff.
type Estimate struct {
	EnergyKWh float64 `json:"energy_kwh"`
	Cost      float64 `json:"cost"`
	Currency  string  `json:"currency"`
}

func (t Tariff) estimate(e energy.KilowattHours) Estimate {
	return Estimate{
		EnergyKWh: float64(e),
		Cost:      float64(e) * t.RatePerKWh,
		Currency:  t.Currency,
	}
}

// MonthToDate estimates one outlet's cost for the current month so far.
func (t Tariff) MonthToDate(logs map[string]models.DailyLog, now time.Time) Estimate {
	return t.estimate(energy.MonthToDate(logs, now, energy.Logged))
}

// Range estimates one outlet's cost over [start, end] inclusive.
func (t Tariff) Range(logs map[string]models.DailyLog, start, end time.Time) Estimate {
	return t.estimate(energy.Range(logs, start, end, energy.Logged))
}

// Fleet estimates month-to-date cost per outlet plus the institution total.
func (t Tariff) Fleet(devices map[string]models.Device, now time.Time) (map[string]Estimate, Estimate) {
	per := make(map[string]Estimate, len(devices))
	var total energy.KilowattHours
	for key, dev := range devices {
		e := energy.MonthToDate(dev.DailyLogs, now, energy.Logged)
		per[key] = t.estimate(e)
		total += e
	}
	return per, t.estimate(total)
}
