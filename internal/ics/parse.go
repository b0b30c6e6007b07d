package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "dailymanifest/internal/log"
)

// uidSpace namespaces the synthesized UIDs of VEVENTs that carry none.
var uidSpace = uuid.MustParse("8f0f6c3e-5b1a-4c52-9a43-1d7e0b6a2f10")

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";")

// Event is a VEVENT reduced to what the manifest needs. Recurrences are
// recorded here and expanded by Expand.
type Event struct {
	Feed Feed

	UID         string
	Summary     string
	Description string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule        string
	ExDates      []time.Time
	RecurrenceID *time.Time
}

// IsOverride reports whether the event replaces one instance of a
// recurring series.
func (e Event) IsOverride() bool { return e.RecurrenceID != nil }

// Parse decodes a calendar body. Malformed VEVENTs are logged and skipped.
func Parse(feed Feed, body []byte) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty calendar body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feed, ve)
		if err != nil {
			appLog.Error("ics vevent skipped", err, "feed", feed.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parsed", "feed", feed.ID, "events", len(events))
	return events, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (Event, error) {
	ev := Event{Feed: feed}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = unescapeText(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	ev.Start = start
	ev.AllDay = isDateValue(dtStart)

	if end, err := ve.GetEndAt(); err == nil && !end.Before(start) {
		ev.End = end
	} else if ev.AllDay {
		ev.End = start.AddDate(0, 0, 1)
	} else {
		ev.End = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil && strings.TrimSpace(p.Value) != "" {
		ev.UID = strings.TrimSpace(p.Value)
	} else {
		ev.UID = synthesizeUID(feed, ev.Summary, ev.Start)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = strings.TrimSpace(p.Value)
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := paramLocation(p, start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		t, err := parseICSTime(p.Value, paramLocation(p, start.Location()))
		if err != nil {
			return ev, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		ev.RecurrenceID = &t
	}

	return ev, nil
}

func synthesizeUID(feed Feed, summary string, start time.Time) string {
	key := feed.ID + "\x00" + summary + "\x00" + start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidSpace, []byte(key)).String()
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// paramLocation resolves a TZID parameter, falling back to def.
func paramLocation(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tz := p.ICalParameters["TZID"]; len(tz) > 0 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	return def
}

// parseICSTime parses DATE, floating DATE-TIME and UTC DATE-TIME values.
// Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return textUnescaper.Replace(s)
}
