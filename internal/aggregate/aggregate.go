// Package aggregate buckets normalized records by calendar day, applies
// type/status filters and rolls filtered records up into day statistics.
// Every function is pure; callers re-run them whenever the batch or the
// filter changes.
package aggregate

import (
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"dailymanifest/internal/model"
)

// BucketByDay returns one bucket per reference day, in the order given.
// A record joins the bucket whose date matches its start date in that
// day's location. Records outside every day are dropped.
func BucketByDay(records []model.Record, days []time.Time) []model.DayBucket {
	buckets := make([]model.DayBucket, len(days))
	for i, d := range days {
		buckets[i] = model.DayBucket{Date: Midnight(d), Records: []model.Record{}}
	}

	for _, rec := range records {
		for i := range buckets {
			day := buckets[i].Date
			if sameDay(rec.Start.In(day.Location()), day) {
				buckets[i].Records = append(buckets[i].Records, rec)
				break
			}
		}
	}
	return buckets
}

// AvailableTypes returns "All Types" followed by the distinct display names
// of records, in locale-aware alphabetical order.
func AvailableTypes(records []model.Record) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, rec := range records {
		name := rec.DisplayName()
		if name == "" || name == model.AllTypes {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	collate.New(language.English).SortStrings(names)

	return append([]string{model.AllTypes}, names...)
}

// AvailableStatuses returns the status filter values in display order.
func AvailableStatuses() []string {
	out := []string{model.AllStatuses}
	for _, s := range model.Statuses {
		out = append(out, string(s))
	}
	return out
}

// Filter keeps records matching both dimensions of f. A record without a
// classification never matches a concrete type.
func Filter(records []model.Record, f model.FilterState) []model.Record {
	f = f.Normalize()
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec, f) {
			out = append(out, rec)
		}
	}
	return out
}

// Matches reports whether rec passes the (normalized) filter f.
func Matches(rec model.Record, f model.FilterState) bool {
	if f.Type != model.FilterAll {
		if rec.Classification == nil || rec.Classification.DisplayName != f.Type {
			return false
		}
	}
	if f.Status != model.FilterAll && string(rec.Status) != f.Status {
		return false
	}
	return true
}

// Stats folds records into a DayStats. Cancellations and capacity issues
// count records, not guests.
func Stats(records []model.Record) model.DayStats {
	stats := model.DayStats{
		OverbookedRecords: []model.Record{},
		CancelledRecords:  []model.Record{},
	}

	for _, rec := range records {
		stats.TotalGuests += rec.Roster.Total
		if rec.Status == model.StatusInProgress {
			stats.ActiveNow += rec.Roster.Active
		}
		if rec.Roster.HasCancellations() {
			stats.Cancellations++
			stats.CancelledRecords = append(stats.CancelledRecords, rec)
		}
		if rec.Overbooked() {
			stats.CapacityIssues++
			stats.OverbookedRecords = append(stats.OverbookedRecords, rec)
		}
	}
	return stats
}
