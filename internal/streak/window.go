// Package streak answers whether an account has contribution activity for
// the current calendar day in a given timezone.
package streak

import "time"

// Window is the half-open [Start, End) interval covering one local calendar day.
//
// Bounds are computed on the zone's local calendar, so a day spanning a DST
// transition is 23 or 25 absolute hours, never a fixed 24.
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow returns the window for the calendar day containing now in loc.
func DayWindow(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// AddDate moves by one calendar day; the zone offset may differ.
	end := start.AddDate(0, 0, 1)
	return Window{Start: start, End: end}
}

func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Date is the local calendar date the window covers, e.g. "2026-09-01".
func (w Window) Date() string { return w.Start.Format("2006-01-02") }

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
