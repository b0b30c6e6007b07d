package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailymanifest/internal/aggregate"
	"dailymanifest/internal/ics"
	"dailymanifest/internal/model"
)

const feedA = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//dailymanifest//test//EN
BEGIN:VEVENT
UID:a-1
DTSTAMP:20250601T000000Z
DTSTART:20250601T160000Z
DTEND:20250601T170000Z
SUMMARY:Zipline Tour - 8 of 10
END:VEVENT
BEGIN:VEVENT
UID:a-late
DTSTAMP:20250601T000000Z
DTSTART:20250610T160000Z
DTEND:20250610T170000Z
SUMMARY:Kayak Rental
END:VEVENT
END:VCALENDAR
`

const feedB = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//dailymanifest//test//EN
BEGIN:VEVENT
UID:a-1
DTSTAMP:20250601T000000Z
DTSTART:20250601T160000Z
DTEND:20250601T170000Z
SUMMARY:Zipline Tour - duplicate
END:VEVENT
BEGIN:VEVENT
UID:b-1
DTSTAMP:20250601T000000Z
DTSTART:20250602T080000Z
DTEND:20250602T090000Z
SUMMARY:Hike & Fly Tour
END:VEVENT
END:VCALENDAR
`

func calendarServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.ics":
			_, _ = w.Write([]byte(strings.ReplaceAll(feedA, "\n", "\r\n")))
		case "/b.ics":
			_, _ = w.Write([]byte(strings.ReplaceAll(feedB, "\n", "\r\n")))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func june(day int) aggregate.Window {
	d := time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC)
	return aggregate.Window{Start: d, End: d.AddDate(0, 0, 2)}
}

func TestICSSource_MergesFeeds(t *testing.T) {
	srv := calendarServer(t)
	src := NewICS(ics.NewFetcher(t.TempDir(), srv.Client()), []ics.Feed{
		{ID: "a", URL: srv.URL + "/a.ics"},
		{ID: "b", URL: srv.URL + "/b.ics"},
	}, time.UTC)

	entries, err := src.Entries(context.Background(), june(1))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a-1", entries[0].ID)
	assert.Equal(t, "Zipline Tour - 8 of 10", entries[0].Title)
	assert.Equal(t, "b-1", entries[1].ID)
}

func TestICSSource_PartialFailure(t *testing.T) {
	srv := calendarServer(t)
	src := NewICS(ics.NewFetcher(t.TempDir(), srv.Client()), []ics.Feed{
		{ID: "a", URL: srv.URL + "/a.ics"},
		{ID: "gone", URL: srv.URL + "/gone.ics"},
	}, time.UTC)

	entries, err := src.Entries(context.Background(), june(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed gone")
	require.Len(t, entries, 1)
	assert.Equal(t, "a-1", entries[0].ID)
}

func TestICSSource_NoFeeds(t *testing.T) {
	src := NewICS(ics.NewFetcher(t.TempDir(), nil), nil, nil)

	entries, err := src.Entries(context.Background(), june(1))
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStatic(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := Static{{ID: "1", Title: "Zipline", Start: at, End: at.Add(time.Hour)}}

	got, err := s.Entries(context.Background(), aggregate.Window{})
	require.NoError(t, err)
	assert.Equal(t, []model.RawEntry(s), got)

	got[0].Title = "changed"
	assert.Equal(t, "Zipline", s[0].Title)

	empty, err := Static(nil).Entries(context.Background(), aggregate.Window{})
	require.NoError(t, err)
	assert.NotNil(t, empty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Entries(ctx, aggregate.Window{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"id": "1", "title": "Zipline Tour - 8 of 10", "description": "2x John Doe", "startTime": "2025-06-01T09:00:00Z", "endTime": "2025-06-01T10:00:00Z"}
]`), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, "Zipline Tour - 8 of 10", s[0].Title)
	assert.True(t, s[0].Start.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
