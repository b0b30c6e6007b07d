// Package refresh keeps the latest processed batch and re-fetches it on a
// cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dailymanifest/internal/aggregate"
	appLog "dailymanifest/internal/log"
	"dailymanifest/internal/model"
	"dailymanifest/internal/occupancy"
	"dailymanifest/internal/pipeline"
	"dailymanifest/internal/source"
)

// Snapshot is the result of the most recent refresh.
type Snapshot struct {
	Records   []model.Record
	FetchedAt time.Time
	// Err is the last refresh error. Records may still be populated from a
	// partial or earlier successful refresh.
	Err error
}

// At returns a copy of the records with status re-derived for now.
func (s Snapshot) At(now time.Time) []model.Record {
	out := make([]model.Record, len(s.Records))
	for i, rec := range s.Records {
		rec.Status = occupancy.StatusAt(now, rec.Start, rec.End)
		out[i] = rec
	}
	return out
}

// Options tune a Refresher. Zero values take defaults.
type Options struct {
	Location     *time.Location
	WindowDays   int
	BackfillDays int
	Now          func() time.Time
}

// Refresher pulls entries from a source and processes them into records.
type Refresher struct {
	src  source.Source
	proc *pipeline.Processor
	opts Options

	mu   sync.RWMutex
	snap Snapshot
}

func New(src source.Source, proc *pipeline.Processor, opts Options) *Refresher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = aggregate.DefaultWindowDays
	}
	if opts.BackfillDays < 0 {
		opts.BackfillDays = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if proc == nil {
		proc = pipeline.NewProcessor(nil)
	}
	return &Refresher{
		src:  src,
		proc: proc,
		opts: opts,
		snap: Snapshot{Records: []model.Record{}},
	}
}

// Now is the refresher's clock in its display location.
func (r *Refresher) Now() time.Time {
	return r.opts.Now().In(r.opts.Location)
}

// Location is the display location.
func (r *Refresher) Location() *time.Location {
	return r.opts.Location
}

// Window is the fetch window: the backfill days before today through the
// last displayed day.
func (r *Refresher) Window() aggregate.Window {
	w := aggregate.DefaultWindow(r.Now(), r.opts.WindowDays)
	w.Start = w.Start.AddDate(0, 0, -r.opts.BackfillDays)
	return w
}

// Snapshot returns the latest snapshot.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Refresh fetches and processes the batch for Window. When the source
// fails without yielding anything the previous records are kept.
func (r *Refresher) Refresh(ctx context.Context) Snapshot {
	return r.RefreshWindow(ctx, r.Window())
}

// RefreshWindow is Refresh over an explicit window.
func (r *Refresher) RefreshWindow(ctx context.Context, w aggregate.Window) Snapshot {
	now := r.Now()
	entries, err := r.src.Entries(ctx, w)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		appLog.Error("refresh failed", err, "entries", len(entries))
	}
	if err != nil && len(entries) == 0 {
		r.snap.Err = err
		return r.snap
	}

	records := r.proc.ProcessBatch(entries, now)
	r.snap = Snapshot{Records: records, FetchedAt: now, Err: err}
	appLog.Info("refresh completed", "records", len(records))
	return r.snap
}

// Start schedules Refresh on spec until ctx is done. Overlapping runs are
// skipped and panics are recovered.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	logger := appLog.CronLogger()
	c := cron.New(
		cron.WithLocation(r.opts.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(spec, func() { r.Refresh(ctx) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("refresh scheduled", "spec", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Debug("refresh scheduler stopped")
	}()
	return nil
}
