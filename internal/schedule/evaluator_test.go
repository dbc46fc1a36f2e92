package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// 2026-08-31 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2026, time.August, 31, hour, min, 0, 0, time.UTC)
}

func saturday(hour, min int) time.Time {
	return time.Date(2026, time.August, 29, hour, min, 0, 0, time.UTC)
}

func TestIsActiveWithoutSchedule(t *testing.T) {
	t.Run("should follow the control flag when no window exists", func(t *testing.T) {
		assert.True(t, IsActive(nil, models.ControlOn, monday(12, 0)))
		assert.False(t, IsActive(nil, models.ControlOff, monday(12, 0)))
		assert.True(t, IsActive(&models.Schedule{Frequency: "daily"}, models.ControlOn, monday(12, 0)))
	})
}

func TestIsActiveWindow(t *testing.T) {
	sched := &models.Schedule{StartTime: "09:00", EndTime: "17:00"}

	t.Run("should be inactive when control request is off", func(t *testing.T) {
		assert.False(t, IsActive(sched, models.ControlOff, monday(12, 0)))
	})

	t.Run("should be active inside the window", func(t *testing.T) {
		assert.True(t, IsActive(sched, models.ControlOn, monday(9, 0)))
		assert.True(t, IsActive(sched, models.ControlOn, monday(16, 59)))
	})

	t.Run("should turn off exactly at the end time", func(t *testing.T) {
		assert.False(t, IsActive(sched, models.ControlOn, monday(17, 0)))
	})

	t.Run("should be inactive before the start", func(t *testing.T) {
		assert.False(t, IsActive(sched, models.ControlOn, monday(8, 59)))
	})
}

func TestIsActiveMidnightSpan(t *testing.T) {
	sched := &models.Schedule{StartTime: "22:00", EndTime: "02:00"}

	assert.True(t, IsActive(sched, models.ControlOn, monday(23, 30)))
	assert.True(t, IsActive(sched, models.ControlOn, monday(1, 0)))
	assert.False(t, IsActive(sched, models.ControlOn, monday(12, 0)))
	assert.False(t, IsActive(sched, models.ControlOn, monday(2, 0)))
}

func TestIsActiveTimeRangeEncoding(t *testing.T) {
	t.Run("should parse a 12h range string", func(t *testing.T) {
		sched := &models.Schedule{TimeRange: "9:00 AM - 5:00 PM"}
		assert.True(t, IsActive(sched, models.ControlOn, monday(10, 0)))
		assert.False(t, IsActive(sched, models.ControlOn, monday(17, 0)))
	})

	t.Run("should treat 12 AM as midnight and 12 PM as noon", func(t *testing.T) {
		sched := &models.Schedule{TimeRange: "12:00 AM - 12:00 PM"}
		assert.True(t, IsActive(sched, models.ControlOn, monday(0, 0)))
		assert.True(t, IsActive(sched, models.ControlOn, monday(11, 59)))
		assert.False(t, IsActive(sched, models.ControlOn, monday(12, 0)))
	})

	t.Run("should prefer the range string over the 24h pair", func(t *testing.T) {
		sched := &models.Schedule{
			TimeRange: "1:00 PM - 2:00 PM",
			StartTime: "09:00",
			EndTime:   "17:00",
		}
		assert.False(t, IsActive(sched, models.ControlOn, monday(10, 0)))
		assert.True(t, IsActive(sched, models.ControlOn, monday(13, 30)))
	})
}

func TestIsActiveMalformedWindow(t *testing.T) {
	t.Run("should fail closed to the current control request", func(t *testing.T) {
		bad := []*models.Schedule{
			{TimeRange: "9:00 AM until 5:00 PM"},
			{TimeRange: "banana - 5:00 PM"},
			{StartTime: "9", EndTime: "17:00"},
			{StartTime: "09:00", EndTime: "25:00"},
			{TimeRange: "13:00 XM - 5:00 PM"},
		}
		for _, s := range bad {
			assert.True(t, IsActive(s, models.ControlOn, monday(3, 0)), "schedule %+v", s)
			assert.False(t, IsActive(s, models.ControlOff, monday(3, 0)), "schedule %+v", s)
		}
	})
}

func TestIsActiveFrequency(t *testing.T) {
	window := func(freq string) *models.Schedule {
		return &models.Schedule{StartTime: "00:00", EndTime: "23:59", Frequency: freq}
	}

	t.Run("weekdays", func(t *testing.T) {
		assert.True(t, IsActive(window("weekdays"), models.ControlOn, monday(12, 0)))
		assert.False(t, IsActive(window("weekdays"), models.ControlOn, saturday(12, 0)))
	})

	t.Run("weekends", func(t *testing.T) {
		assert.False(t, IsActive(window("weekends"), models.ControlOn, monday(12, 0)))
		assert.True(t, IsActive(window("weekends"), models.ControlOn, saturday(12, 0)))
	})

	t.Run("comma list with mixed forms", func(t *testing.T) {
		assert.True(t, IsActive(window("Monday, wed, f"), models.ControlOn, monday(12, 0)))
		assert.False(t, IsActive(window("tue, thu"), models.ControlOn, monday(12, 0)))
	})

	t.Run("single day", func(t *testing.T) {
		assert.True(t, IsActive(window("mon"), models.ControlOn, monday(12, 0)))
		assert.False(t, IsActive(window("sat"), models.ControlOn, monday(12, 0)))
	})

	t.Run("unrecognized frequency fails open", func(t *testing.T) {
		assert.True(t, IsActive(window("fortnightly"), models.ControlOn, monday(12, 0)))
		assert.True(t, IsActive(window(""), models.ControlOn, saturday(12, 0)))
	})
}

func TestParseFrequency(t *testing.T) {
	t.Run("should drop ambiguous single letters", func(t *testing.T) {
		f := ParseFrequency("m, t, s")
		assert.Equal(t, Specific, f.Kind)
		assert.True(t, f.Matches(time.Monday))
		assert.False(t, f.Matches(time.Tuesday))
		assert.False(t, f.Matches(time.Thursday))
		assert.False(t, f.Matches(time.Saturday))
		assert.False(t, f.Matches(time.Sunday))
	})

	t.Run("should fall back to daily when nothing resolves", func(t *testing.T) {
		f := ParseFrequency("t, s")
		assert.Equal(t, Daily, f.Kind)
	})
}
