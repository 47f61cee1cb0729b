package feeds

import (
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CALENDAR - Trading day and regular trading hours
// ═══════════════════════════════════════════════════════════════════════════════
//
// SessionStart is a time of day in the exchange location:
//   0            → calendar date
//   >= 12:00     → bars at/after the start belong to the NEXT trading day (18:00 futures)
//   < 12:00      → bars before the start belong to the PREVIOUS trading day
//
// ═══════════════════════════════════════════════════════════════════════════════

// Calendar maps bar timestamps onto trading days and the RTH window
type Calendar struct {
	Location     *time.Location
	SessionStart time.Duration
	RTHStart     time.Duration // inclusive
	RTHEnd       time.Duration // exclusive
}

// DefaultCalendar is US equity index hours in New York time
func DefaultCalendar() Calendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return Calendar{
		Location: loc,
		RTHStart: 9*time.Hour + 30*time.Minute,
		RTHEnd:   16 * time.Hour,
	}
}

func (c Calendar) local(t time.Time) time.Time {
	if c.Location == nil {
		return t.UTC()
	}
	return t.In(c.Location)
}

// TimeOfDay returns the offset since local midnight
func (c Calendar) TimeOfDay(t time.Time) time.Duration {
	l := c.local(t)
	return time.Duration(l.Hour())*time.Hour +
		time.Duration(l.Minute())*time.Minute +
		time.Duration(l.Second())*time.Second
}

// TradingDay returns local midnight of the trading day a timestamp belongs to
func (c Calendar) TradingDay(t time.Time) time.Time {
	l := c.local(t)
	day := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
	if c.SessionStart <= 0 {
		return day
	}

	tod := c.TimeOfDay(t)
	if c.SessionStart >= 12*time.Hour {
		if tod >= c.SessionStart {
			return day.AddDate(0, 0, 1)
		}
		return day
	}
	if tod < c.SessionStart {
		return day.AddDate(0, 0, -1)
	}
	return day
}

// SameTradingDay reports whether two timestamps share a trading day
func (c Calendar) SameTradingDay(a, b time.Time) bool {
	return c.TradingDay(a).Equal(c.TradingDay(b))
}

// InRTH reports whether t falls inside [RTHStart, RTHEnd).
// An empty window (start == end) means always open.
func (c Calendar) InRTH(t time.Time) bool {
	if c.RTHStart == c.RTHEnd {
		return true
	}
	tod := c.TimeOfDay(t)
	if c.RTHStart < c.RTHEnd {
		return tod >= c.RTHStart && tod < c.RTHEnd
	}
	// window wraps midnight
	return tod >= c.RTHStart || tod < c.RTHEnd
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into a time-of-day offset
func ParseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid clock %q: want HH:MM[:SS]", s)
}
