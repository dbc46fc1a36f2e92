// Package schedule decides whether an outlet should be active at a given
// wall-clock instant. Pure functions, no side effects: the arbiter owns all
// writes.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// IsActive maps a schedule descriptor plus the current control request to a
// "should be on" verdict at now.
//
// Schedule-less devices are governed solely by their explicit control flag,
// so the fallback in every degenerate case is current == on. Time parsing
// fails closed to that fallback; frequency parsing fails open to "every day".
// Neither may crash a sweep.
func IsActive(s *models.Schedule, current models.ControlState, now time.Time) bool {
	if !s.HasWindow() {
		return current == models.ControlOn
	}
	if current != models.ControlOn {
		return false
	}

	start, end, ok := parseWindow(s)
	if !ok {
		return current == models.ControlOn
	}

	minute := now.Hour()*60 + now.Minute()
	var inWindow bool
	if end < start {
		// Window spans midnight, e.g. 22:00-02:00.
		inWindow = minute >= start || minute < end
	} else {
		// End-exclusive: a schedule ending at 17:00 is off at 17:00 sharp.
		inWindow = minute >= start && minute < end
	}

	return inWindow && ParseFrequency(s.Frequency).Matches(now.Weekday())
}

// parseWindow extracts the active window as minutes since midnight. The
// TimeRange string takes precedence over the StartTime/EndTime pair.
func parseWindow(s *models.Schedule) (start, end int, ok bool) {
	if s.TimeRange != "" {
		return parseTimeRange(s.TimeRange)
	}
	start, ok = parseClock24(s.StartTime)
	if !ok {
		return 0, 0, false
	}
	end, ok = parseClock24(s.EndTime)
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// parseClock24 parses "HH:MM".
func parseClock24(v string) (int, bool) {
	h, m, ok := splitClock(v)
	if !ok || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// parseTimeRange parses "h:mm AM/PM - h:mm AM/PM".
func parseTimeRange(v string) (start, end int, ok bool) {
	parts := strings.Split(v, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok = parseClock12(parts[0])
	if !ok {
		return 0, 0, false
	}
	end, ok = parseClock12(parts[1])
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// parseClock12 parses "h:mm AM" / "h:mm PM". 12 AM is midnight, 12 PM noon.
func parseClock12(v string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(v))
	if len(fields) != 2 {
		return 0, false
	}
	h, m, ok := splitClock(fields[0])
	if !ok || h < 1 || h > 12 || m < 0 || m > 59 {
		return 0, false
	}
	switch strings.ToUpper(fields[1]) {
	case "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h != 12 {
			h += 12
		}
	default:
		return 0, false
	}
	return h*60 + m, true
}

func splitClock(v string) (h, m int, ok bool) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}
