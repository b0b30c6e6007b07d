package aggregate

import "time"

const (
	// DefaultWindowDays is today, tomorrow and the day after.
	DefaultWindowDays = 3

	// maxWindowDays bounds Days() against absurd ranges.
	maxWindowDays = 366
)

// Window is an inclusive range of calendar days. Only the date part of
// Start and End matters; both are interpreted in Start's location.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns the window of days calendar days beginning today.
func DefaultWindow(now time.Time, days int) Window {
	if days <= 0 {
		days = DefaultWindowDays
	}
	today := Midnight(now)
	return Window{Start: today, End: today.AddDate(0, 0, days-1)}
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// OrDefault returns w, or the default window when w is unset. A window
// with only one bound set collapses to that single day; an inverted window
// is swapped.
func (w Window) OrDefault(now time.Time, days int) Window {
	switch {
	case w.IsZero():
		return DefaultWindow(now, days)
	case w.Start.IsZero():
		w.Start = w.End
	case w.End.IsZero():
		w.End = w.Start
	}
	if Midnight(w.End).Before(Midnight(w.Start)) {
		w.Start, w.End = w.End, w.Start
	}
	return w
}

// Days lists the local midnights of every day in the window.
func (w Window) Days() []time.Time {
	loc := w.Start.Location()
	first := Midnight(w.Start)
	last := Midnight(w.End.In(loc))

	var days []time.Time
	for d := first; !d.After(last) && len(days) < maxWindowDays; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Bounds returns the instants covering the window: the first day's
// midnight and the last nanosecond of the final day.
func (w Window) Bounds() (from, to time.Time) {
	loc := w.Start.Location()
	from = Midnight(w.Start)
	to = Midnight(w.End.In(loc)).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
