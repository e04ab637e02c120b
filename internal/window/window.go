package window

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultDays is the span of the fallback window when no start is supplied.
const DefaultDays = 7

// Window is a half-open time interval [Start, EndExclusive) used to scope
// all aggregation queries. The exclusive upper bound makes the final calendar
// day of a range fully inclusive regardless of any time-of-day component in
// the raw input.
type Window struct {
	Start        time.Time
	EndExclusive time.Time
}

// Normalize derives a usable window from heterogeneous start/end inputs.
// Empty strings fall back to defaults (start: DefaultDays before now,
// end: now). Unparseable strings are treated the same way; the caller always
// receives a valid window, never an error.
func Normalize(start, end string) Window {
	return NormalizeDaysAt(start, end, DefaultDays, time.Now())
}

// NormalizeDays is Normalize with a configurable fallback span.
func NormalizeDays(start, end string, days int) Window {
	return NormalizeDaysAt(start, end, days, time.Now())
}

// NormalizeAt is Normalize with an injectable clock.
func NormalizeAt(start, end string, now time.Time) Window {
	return NormalizeDaysAt(start, end, DefaultDays, now)
}

// NormalizeDaysAt is the full form behind the helpers above.
func NormalizeDaysAt(start, end string, days int, now time.Time) Window {
	if days <= 0 {
		days = DefaultDays
	}
	startT := now.AddDate(0, 0, -days)
	if start != "" {
		if t, err := ParseTimestamp(start); err == nil {
			startT = t
		}
	}

	endT := now
	if end != "" {
		if t, err := ParseTimestamp(end); err == nil {
			endT = t
		}
	}

	return FromTimes(startT, endT)
}

// FromTimes builds a window from already-parsed bounds. The end value is
// end-inclusive at the day level and is converted to an exclusive boundary
// by truncating to midnight and adding one day.
func FromTimes(start, end time.Time) Window {
	return Window{
		Start:        start,
		EndExclusive: midnight(end).AddDate(0, 0, 1),
	}
}

// Today returns the window covering the current calendar day.
func Today() Window {
	return TodayAt(time.Now())
}

// TodayAt returns the calendar-day window containing now.
func TodayAt(now time.Time) Window {
	start := midnight(now)
	return Window{Start: start, EndExclusive: start.AddDate(0, 0, 1)}
}

// Day returns the calendar-day window containing t.
func Day(t time.Time) Window {
	start := midnight(t)
	return Window{Start: start, EndExclusive: start.AddDate(0, 0, 1)}
}

// InclusiveDayCount counts calendar days covered by the window, both bounds
// inclusive. This deliberately uses calendar dates rather than the exclusive
// query boundary: a single-day window counts as 1.
func (w Window) InclusiveDayCount() int {
	start := midnight(w.Start)
	// EndExclusive is the midnight after the last included day.
	last := w.EndExclusive.AddDate(0, 0, -1)
	days := int(midnight(last).Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Label renders the window for display, e.g. "2024-01-01 to 2024-01-07".
func (w Window) Label() string {
	first := w.Start.Format("2006-01-02")
	last := w.EndExclusive.AddDate(0, 0, -1).Format("2006-01-02")
	if first == last {
		return first
	}
	return fmt.Sprintf("%s to %s", first, last)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseTimestamp tries multiple timestamp formats, including bare dates and
// Unix seconds.
func ParseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02 15:04:05",
		"01/02/2006 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return t, nil
		}
	}

	// Try Unix timestamp
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(ts, 0), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}
