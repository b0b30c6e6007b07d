// Package source supplies raw scheduling entries to the pipeline.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"dailymanifest/internal/aggregate"
	"dailymanifest/internal/ics"
	appLog "dailymanifest/internal/log"
	"dailymanifest/internal/model"
)

// Source yields the raw entries that may fall inside window. A source may
// return entries together with an error when only part of it failed.
type Source interface {
	Entries(ctx context.Context, window aggregate.Window) ([]model.RawEntry, error)
}

// ICSSource reads booking calendars over HTTP.
type ICSSource struct {
	fetcher  *ics.Fetcher
	feeds    []ics.Feed
	location *time.Location
}

// NewICS returns a source over feeds. Entry times are converted to loc.
func NewICS(fetcher *ics.Fetcher, feeds []ics.Feed, loc *time.Location) *ICSSource {
	if loc == nil {
		loc = time.Local
	}
	return &ICSSource{fetcher: fetcher, feeds: feeds, location: loc}
}

func (s *ICSSource) Entries(ctx context.Context, window aggregate.Window) ([]model.RawEntry, error) {
	if len(s.feeds) == 0 {
		return []model.RawEntry{}, nil
	}

	payloads, err := s.fetcher.FetchAll(ctx, s.feeds)
	errs := []error{err}

	var events []ics.Event
	for _, p := range payloads {
		evs, err := ics.Parse(p.Feed, p.Body)
		if err != nil {
			appLog.Error("ics feed unreadable", err, "feed", p.Feed.ID)
			errs = append(errs, fmt.Errorf("feed %s: %w", p.Feed.ID, err))
			continue
		}
		events = append(events, evs...)
	}

	from, to := window.Bounds()
	entries, err := ics.Expand(events, ics.Range{
		From:     from.In(s.location),
		To:       to.In(s.location),
		Location: s.location,
	})
	if err != nil {
		return nil, err
	}

	return dedupe(entries), errors.Join(errs...)
}

// dedupe drops entries whose ID was already seen, keeping the first.
func dedupe(entries []model.RawEntry) []model.RawEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			appLog.Debug("duplicate entry dropped", "id", e.ID)
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Static is a fixed batch of entries.
type Static []model.RawEntry

// Entries returns a copy of the batch; the window is applied downstream by
// day bucketing.
func (s Static) Entries(ctx context.Context, _ aggregate.Window) ([]model.RawEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := slices.Clone([]model.RawEntry(s))
	if out == nil {
		out = []model.RawEntry{}
	}
	return out, nil
}

// LoadFile reads a JSON array of raw entries.
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []model.RawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return Static(entries), nil
}
