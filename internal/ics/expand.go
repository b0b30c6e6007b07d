package ics

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "dailymanifest/internal/log"
	"dailymanifest/internal/model"
)

const defaultMaxPerEvent = 5000

// Range selects which occurrences Expand emits.
type Range struct {
	// From and To bound occurrence starts, inclusive.
	From time.Time
	To   time.Time

	// Location is the zone every emitted time is converted to. Nil means
	// time.Local.
	Location *time.Location

	// MaxPerEvent caps occurrences of a single series. Zero means 5000.
	MaxPerEvent int
}

// Expand turns parsed events into raw entries within r, applying RRULE,
// EXDATE and RECURRENCE-ID overrides. Entries are sorted by start, then ID.
//
// A single event keeps its UID as ID; an occurrence of a series gets the
// UID suffixed with the instance start in UTC.
func Expand(events []Event, r Range) ([]model.RawEntry, error) {
	if r.To.Before(r.From) {
		return nil, errors.New("expand: range end before start")
	}
	if r.Location == nil {
		r.Location = time.Local
	}
	if r.MaxPerEvent <= 0 {
		r.MaxPerEvent = defaultMaxPerEvent
	}

	type seriesKey struct{ feed, uid string }
	var order []seriesKey
	bases := make(map[seriesKey][]Event)
	overrides := make(map[seriesKey][]Event)

	for _, ev := range events {
		k := seriesKey{ev.Feed.ID, ev.UID}
		if ev.IsOverride() {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, ok := bases[k]; !ok {
			order = append(order, k)
		}
		bases[k] = append(bases[k], ev)
	}

	out := make([]model.RawEntry, 0)
	for _, k := range order {
		for _, ev := range bases[k] {
			if ev.RRule == "" {
				if overlaps(ev.Start, ev.End, r.From, r.To) {
					out = append(out, toEntry(ev, ev.UID, r.Location))
				}
				continue
			}
			out = append(out, expandSeries(ev, overrides[k], r)...)
		}
	}

	slices.SortStableFunc(out, func(a, b model.RawEntry) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func expandSeries(ev Event, overrides []Event, r Range) []model.RawEntry {
	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("ics rrule skipped", err, "feed", ev.Feed.ID, "uid", ev.UID, "rrule", ev.RRule)
		return nil
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(r.From.In(loc), r.To.In(loc), true)
	if len(starts) > r.MaxPerEvent {
		appLog.Warn("ics series truncated", "feed", ev.Feed.ID, "uid", ev.UID, "cap", r.MaxPerEvent)
		starts = starts[:r.MaxPerEvent]
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.RawEntry, 0, len(starts))
	for _, s := range starts {
		inst := ev
		inst.Start = s
		inst.End = s.Add(dur)
		if ev.AllDay {
			inst.Start = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
			inst.End = inst.Start.AddDate(0, 0, 1)
		}

		id := ev.UID + "@" + s.UTC().Format("20060102T150405Z")
		if o, ok := findOverride(overrides, s); ok {
			inst = o
		}
		out = append(out, toEntry(inst, id, r.Location))
	}
	return out
}

func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func toEntry(ev Event, id string, loc *time.Location) model.RawEntry {
	return model.RawEntry{
		ID:          id,
		Title:       ev.Summary,
		Description: ev.Description,
		Start:       ev.Start.In(loc),
		End:         ev.End.In(loc),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
