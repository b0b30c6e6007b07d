package aggregate

import (
	"slices"
	"time"

	"dailymanifest/internal/model"
)

// DayView is one day of a dashboard: the filtered records and their stats.
type DayView struct {
	Date    time.Time      `json:"date"`
	Records []model.Record `json:"records"`
	Stats   model.DayStats `json:"stats"`
}

// Result is a fully aggregated view of one batch under one filter.
type Result struct {
	// Filter is the filter actually applied; a type that no longer exists
	// in the batch has been reset to "all".
	Filter   model.FilterState `json:"filter"`
	Types    []string          `json:"types"`
	Statuses []string          `json:"statuses"`
	Days     []DayView         `json:"days"`
	Totals   model.DayStats    `json:"totals"`
}

// Build buckets records into days, refreshes the available types, resets
// a stale type filter and then filters and rolls up each day.
func Build(records []model.Record, days []time.Time, f model.FilterState) Result {
	buckets := BucketByDay(records, days)

	var inWindow []model.Record
	for _, b := range buckets {
		inWindow = append(inWindow, b.Records...)
	}

	types := AvailableTypes(inWindow)
	f = ResetStaleType(f, types)

	res := Result{
		Filter:   f,
		Types:    types,
		Statuses: AvailableStatuses(),
		Days:     make([]DayView, 0, len(buckets)),
	}

	var all []model.Record
	for _, b := range buckets {
		filtered := Filter(b.Records, f)
		all = append(all, filtered...)
		res.Days = append(res.Days, DayView{
			Date:    b.Date,
			Records: filtered,
			Stats:   Stats(filtered),
		})
	}
	res.Totals = Stats(all)

	return res
}

// ResetStaleType normalizes f and resets its type to "all" when the type
// is not among the available values.
func ResetStaleType(f model.FilterState, available []string) model.FilterState {
	f = f.Normalize()
	if f.Type != model.FilterAll && !slices.Contains(available, f.Type) {
		f.Type = model.FilterAll
	}
	return f
}
