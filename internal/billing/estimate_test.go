package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

var now = time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

func TestMonthToDate(t *testing.T) {
	tariff := Tariff{RatePerKWh: 12.5, Currency: "PHP"}
	logs := map[string]models.DailyLog{
		"day_2026_08_01": {TotalEnergy: 1.0},
		"day_2026_08_10": {TotalEnergy: 0.5},
		"day_2026_07_31": {TotalEnergy: 9.0}, // previous month
	}

	est := tariff.MonthToDate(logs, now)
	assert.InDelta(t, 1.5, est.EnergyKWh, 1e-9)
	assert.InDelta(t, 18.75, est.Cost, 1e-9)
	assert.Equal(t, "PHP", est.Currency)
}

func TestMonthToDateIgnoresCorrection(t *testing.T) {
	tariff := Tariff{RatePerKWh: 10, Currency: "PHP"}
	// Runtime data disagrees with the logged figure; billing still uses the
	// logged 0.2 kWh.
	logs := map[string]models.DailyLog{
		"day_2026_08_10": {TotalEnergy: 0.2, AvgPower: 500, UsageTimeHours: 2.0},
	}

	est := tariff.MonthToDate(logs, now)
	assert.InDelta(t, 0.2, est.EnergyKWh, 1e-9)
}

func TestFleet(t *testing.T) {
	tariff := Tariff{RatePerKWh: 10, Currency: "PHP"}
	devices := map[string]models.Device{
		"Outlet_1": {DailyLogs: map[string]models.DailyLog{"day_2026_08_01": {TotalEnergy: 1.0}}},
		"Outlet_2": {DailyLogs: map[string]models.DailyLog{"day_2026_08_02": {TotalEnergy: 2.0}}},
	}

	per, total := tariff.Fleet(devices, now)
	assert.InDelta(t, 10.0, per["Outlet_1"].Cost, 1e-9)
	assert.InDelta(t, 20.0, per["Outlet_2"].Cost, 1e-9)
	assert.InDelta(t, 3.0, total.EnergyKWh, 1e-9)
	assert.InDelta(t, 30.0, total.Cost, 1e-9)
}
