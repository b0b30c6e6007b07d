package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailymanifest/internal/model"
)

var day0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

type recOpt func(*model.Record)

func withType(name string) recOpt {
	return func(r *model.Record) {
		r.Classification = &model.Classification{Category: name, DisplayName: name, FilterName: name, SpecificName: name}
	}
}

func withStatus(s model.Status) recOpt {
	return func(r *model.Record) { r.Status = s }
}

func withGuests(gs ...model.Guest) recOpt {
	return func(r *model.Record) {
		r.Roster = model.Roster{Guests: gs}
		for _, g := range gs {
			r.Roster.Total += g.Count
			if !g.IsCancelled {
				r.Roster.Active += g.Count
			}
		}
	}
}

func withCapacity(cur, max *int) recOpt {
	return func(r *model.Record) {
		r.CurrentCapacity = cur
		r.MaxCapacity = max
	}
}

func rec(id string, start time.Time, opts ...recOpt) model.Record {
	r := model.Record{
		RawEntry: model.RawEntry{ID: id, Title: id, Start: start, End: start.Add(time.Hour)},
		Roster:   model.Roster{Guests: []model.Guest{}},
		Status:   model.StatusUpcoming,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func ids(records []model.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestBucketByDay(t *testing.T) {
	days := []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)}
	records := []model.Record{
		rec("a", day0.Add(9*time.Hour)),
		rec("b", day0.Add(33*time.Hour)),
		rec("c", day0.Add(-time.Minute)),
		rec("d", day0.Add(10*time.Hour)),
		rec("e", day0.AddDate(0, 0, 2).Add(23*time.Hour+59*time.Minute)),
		rec("f", day0.AddDate(0, 0, 3)),
	}

	buckets := BucketByDay(records, days)

	require.Len(t, buckets, 3)
	assert.Equal(t, []string{"a", "d"}, ids(buckets[0].Records))
	assert.Equal(t, []string{"b"}, ids(buckets[1].Records))
	assert.Equal(t, []string{"e"}, ids(buckets[2].Records))
	for i, b := range buckets {
		assert.True(t, b.Date.Equal(days[i]))
	}
}

func TestBucketByDay_UsesDayLocation(t *testing.T) {
	pdt := time.FixedZone("PDT", -7*60*60)
	days := []time.Time{time.Date(2025, 6, 1, 15, 30, 0, 0, pdt)}

	// 05:00 UTC on June 2 is still June 1 in PDT.
	late := rec("late", time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC))
	// 08:00 UTC on June 1 is 01:00 PDT on June 1.
	early := rec("early", time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	// 06:00 UTC on June 1 is May 31 in PDT.
	before := rec("before", time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC))

	buckets := BucketByDay([]model.Record{late, early, before}, days)

	require.Len(t, buckets, 1)
	assert.Equal(t, []string{"late", "early"}, ids(buckets[0].Records))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, pdt), buckets[0].Date)
}

func TestBucketByDay_Empty(t *testing.T) {
	buckets := BucketByDay(nil, []time.Time{day0})
	require.Len(t, buckets, 1)
	assert.NotNil(t, buckets[0].Records)
	assert.Empty(t, buckets[0].Records)

	assert.Empty(t, BucketByDay([]model.Record{rec("a", day0)}, nil))
}

func TestAvailableTypes(t *testing.T) {
	records := []model.Record{
		rec("1", day0, withType("Zipline")),
		rec("2", day0, withType("Hike & Fly")),
		rec("3", day0),
		rec("4", day0, withType("apple tour")),
		rec("5", day0, withType("Zipline")),
		rec("6", day0, withType("Adv. Course")),
	}

	assert.Equal(t, []string{"All Types", "Adv. Course", "apple tour", "Hike & Fly", "Zipline"}, AvailableTypes(records))
	assert.Equal(t, []string{"All Types"}, AvailableTypes(nil))
	assert.Equal(t, []string{"All Types"}, AvailableTypes([]model.Record{rec("x", day0)}))
}

func TestAvailableStatuses(t *testing.T) {
	assert.Equal(t, []string{"All Statuses", "Completed", "In Progress", "Upcoming"}, AvailableStatuses())
}

func TestFilter(t *testing.T) {
	records := []model.Record{
		rec("1", day0, withType("Zipline"), withStatus(model.StatusCompleted)),
		rec("2", day0, withType("Zipline"), withStatus(model.StatusUpcoming)),
		rec("3", day0, withType("SkyNet"), withStatus(model.StatusCompleted)),
		rec("4", day0, withStatus(model.StatusCompleted)),
	}

	tests := []struct {
		name   string
		filter model.FilterState
		want   []string
	}{
		{"all", model.DefaultFilter(), []string{"1", "2", "3", "4"}},
		{"zero value", model.FilterState{}, []string{"1", "2", "3", "4"}},
		{"sentinels", model.FilterState{Type: model.AllTypes, Status: model.AllStatuses}, []string{"1", "2", "3", "4"}},
		{"type", model.FilterState{Type: "Zipline", Status: "all"}, []string{"1", "2"}},
		{"status", model.FilterState{Type: "all", Status: "Completed"}, []string{"1", "3", "4"}},
		{"both", model.FilterState{Type: "Zipline", Status: "Completed"}, []string{"1"}},
		{"unknown type", model.FilterState{Type: "Kayak", Status: "all"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(records, tt.filter)))
		})
	}
}

func TestFilter_ComposesAndIsIdempotent(t *testing.T) {
	records := []model.Record{
		rec("1", day0, withType("Zipline"), withStatus(model.StatusCompleted)),
		rec("2", day0, withType("Zipline"), withStatus(model.StatusInProgress)),
		rec("3", day0, withType("SkyNet"), withStatus(model.StatusCompleted)),
		rec("4", day0, withStatus(model.StatusInProgress)),
	}
	typeOnly := model.FilterState{Type: "Zipline", Status: "all"}
	statusOnly := model.FilterState{Type: "all", Status: "In Progress"}
	both := model.FilterState{Type: "Zipline", Status: "In Progress"}

	want := Filter(records, both)
	assert.Equal(t, want, Filter(Filter(records, typeOnly), statusOnly))
	assert.Equal(t, want, Filter(Filter(records, statusOnly), typeOnly))
	assert.Equal(t, want, Filter(want, both))
	assert.Equal(t, []string{"2"}, ids(want))
}

func TestStats(t *testing.T) {
	records := []model.Record{
		rec("over", day0,
			withStatus(model.StatusInProgress),
			withCapacity(intPtr(12), intPtr(10)),
			withGuests(model.Guest{Count: 2, Name: "A"}, model.Guest{Count: 1, Name: "B", IsCancelled: true})),
		rec("half", day0, withCapacity(intPtr(12), nil), withGuests(model.Guest{Count: 4, Name: "C"})),
		rec("full", day0, withCapacity(intPtr(10), intPtr(10)), withStatus(model.StatusInProgress),
			withGuests(model.Guest{Count: 3, Name: "D"})),
		rec("cancel", day0, withStatus(model.StatusCompleted),
			withGuests(model.Guest{Count: 5, Name: "E", IsCancelled: true}, model.Guest{Count: 1, Name: "F", IsCancelled: true})),
		rec("zero", day0, withCapacity(intPtr(1), intPtr(0))),
	}

	stats := Stats(records)

	assert.Equal(t, 16, stats.TotalGuests)
	assert.Equal(t, 5, stats.ActiveNow)
	assert.Equal(t, 2, stats.Cancellations)
	assert.Equal(t, []string{"over", "cancel"}, ids(stats.CancelledRecords))
	assert.Equal(t, 2, stats.CapacityIssues)
	assert.Equal(t, []string{"over", "zero"}, ids(stats.OverbookedRecords))
}

func TestStats_Empty(t *testing.T) {
	stats := Stats(nil)
	assert.Zero(t, stats.TotalGuests)
	assert.NotNil(t, stats.OverbookedRecords)
	assert.NotNil(t, stats.CancelledRecords)
}
