package model

import "time"

// RawEntry is a single scheduling item as supplied by an event source,
// before any enrichment. It is never mutated by the pipeline.
type RawEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Start / End are absolute instants; day bucketing uses their
	// calendar date in the display location.
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}

// Classification is the category/display metadata derived from an entry title.
type Classification struct {
	Category     string `json:"category"`
	FilterName   string `json:"filterName"`
	SpecificName string `json:"specificName"`
	DisplayName  string `json:"displayName"`
	Color        string `json:"color"`
}

// Guest is one booking line of a roster.
type Guest struct {
	Count       int    `json:"count"`
	Name        string `json:"name"`
	IsCancelled bool   `json:"isCancelled"`
}

// Roster is the structured guest list parsed from a description.
// Total is the sum of all counts; Active excludes cancelled guests.
type Roster struct {
	Guests []Guest `json:"guests"`
	Total  int     `json:"total"`
	Active int     `json:"active"`
}

// HasCancellations reports whether any guest line is cancelled.
func (r Roster) HasCancellations() bool {
	for _, g := range r.Guests {
		if g.IsCancelled {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a record relative to "now".
type Status string

const (
	StatusUpcoming   Status = "Upcoming"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every status value in display order.
var Statuses = []Status{StatusCompleted, StatusInProgress, StatusUpcoming}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Record is a RawEntry enriched with classification, roster, status and
// occupancy. Records are rebuilt from scratch on every processing pass.
type Record struct {
	RawEntry

	Classification *Classification `json:"classification,omitempty"`
	Roster         Roster          `json:"roster"`
	Status         Status          `json:"status"`

	// CurrentCapacity / MaxCapacity come from an "N of M" title fragment.
	// Either may be nil; current > max is allowed and reported as overbooking.
	CurrentCapacity *int `json:"currentCapacity,omitempty"`
	MaxCapacity     *int `json:"maxCapacity,omitempty"`
}

// DisplayName returns the classification display name, or "" when the
// record has no classification.
func (r Record) DisplayName() string {
	if r.Classification == nil {
		return ""
	}
	return r.Classification.DisplayName
}

// Overbooked reports whether both capacities are known and current exceeds max.
func (r Record) Overbooked() bool {
	return r.CurrentCapacity != nil && r.MaxCapacity != nil && *r.CurrentCapacity > *r.MaxCapacity
}

// DayBucket holds the records whose start falls on Date (local midnight).
type DayBucket struct {
	Date    time.Time `json:"date"`
	Records []Record  `json:"records"`
}

// DayStats is the rollup of a (filtered) sequence of records.
type DayStats struct {
	TotalGuests       int      `json:"totalGuests"`
	ActiveNow         int      `json:"activeNow"`
	CapacityIssues    int      `json:"capacityIssues"`
	Cancellations     int      `json:"cancellations"`
	OverbookedRecords []Record `json:"overbookedRecords"`
	CancelledRecords  []Record `json:"cancelledRecords"`
}

// Filter sentinels. "all" disables a filter dimension; the two display
// sentinels are accepted as synonyms of "all".
const (
	FilterAll   = "all"
	AllTypes    = "All Types"
	AllStatuses = "All Statuses"
)

// FilterState is the active type/status filter of a view.
type FilterState struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// DefaultFilter returns a filter that keeps everything.
func DefaultFilter() FilterState {
	return FilterState{Type: FilterAll, Status: FilterAll}
}

// Normalize maps empty values and display sentinels to FilterAll.
func (f FilterState) Normalize() FilterState {
	return FilterState{
		Type:   NormalizeFilterValue(f.Type),
		Status: NormalizeFilterValue(f.Status),
	}
}

// NormalizeFilterValue maps "", "All Types" and "All Statuses" to "all".
func NormalizeFilterValue(v string) string {
	switch v {
	case "", AllTypes, AllStatuses:
		return FilterAll
	}
	return v
}
