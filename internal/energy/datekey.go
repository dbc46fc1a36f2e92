package energy

import (
	"fmt"
	"time"
)

// Daily log entries are keyed by day_YYYY_MM_DD, zero-padded. A key in any
// other shape silently misses its log entry, so generation and parsing live
// here and nowhere else.
const dateKeyLayout = "day_%04d_%02d_%02d"

// DateKey returns the canonical daily-log key for t's calendar day.
func DateKey(t time.Time) string {
	return fmt.Sprintf(dateKeyLayout, t.Year(), int(t.Month()), t.Day())
}

// ParseDateKey inverts DateKey. The bool is false for anything that is not a
// well-formed canonical key.
func ParseDateKey(key string) (time.Time, bool) {
	var y, m, d int
	if _, err := fmt.Sscanf(key, dateKeyLayout, &y, &m, &d); err != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject overflowed dates like day_2026_02_30.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
