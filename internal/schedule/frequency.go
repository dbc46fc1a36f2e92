package schedule

import (
	"strings"
	"time"
)

// FrequencyKind tags the parsed form of a schedule's frequency string.
type FrequencyKind int

const (
	Daily FrequencyKind = iota
	Weekdays
	Weekends
	Specific
)

// Frequency is the day-of-week filter of a schedule, parsed once at the data
// boundary instead of re-split on every poll tick.
type Frequency struct {
	Kind FrequencyKind
	Days map[time.Weekday]bool // populated for Specific only
}

var dayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "m": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "w": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "f": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	// Single-letter "t" and "s" are ambiguous (Tue/Thu, Sat/Sun) and are
	// dropped rather than guessed.
}

// ParseFrequency maps the free-text frequency field to its tagged form.
// Unrecognized or empty input means "every day": a missing frequency is
// common in existing documents and must not disable scheduling.
func ParseFrequency(raw string) Frequency {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "daily", "everyday", "every day":
		return Frequency{Kind: Daily}
	case "weekdays":
		return Frequency{Kind: Weekdays}
	case "weekends":
		return Frequency{Kind: Weekends}
	}

	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if d, ok := dayNames[name]; ok {
			days[d] = true
		}
	}
	if len(days) == 0 {
		// Nothing resolved; fail open, same as an absent frequency.
		return Frequency{Kind: Daily}
	}
	return Frequency{Kind: Specific, Days: days}
}

// Matches reports whether the filter admits the given day.
func (f Frequency) Matches(day time.Weekday) bool {
	switch f.Kind {
	case Daily:
		return true
	case Weekdays:
		return day >= time.Monday && day <= time.Friday
	case Weekends:
		return day == time.Saturday || day == time.Sunday
	case Specific:
		return f.Days[day]
	}
	return true
}
