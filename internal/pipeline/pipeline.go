// Package pipeline turns raw scheduling entries into normalized records.
package pipeline

import (
	"fmt"
	"time"

	"dailymanifest/internal/classify"
	appLog "dailymanifest/internal/log"
	"dailymanifest/internal/model"
	"dailymanifest/internal/occupancy"
	"dailymanifest/internal/roster"
)

// Fallback classification for titles no rule or keyword recognizes.
const (
	GeneralCategory = "general-activity"
	GeneralColor    = "#6b7280"
)

// Processor composes classification, roster parsing and occupancy
// extraction. It holds no mutable state.
type Processor struct {
	classifier *classify.Classifier
}

// NewProcessor returns a Processor using c, or the default classifier
// when c is nil.
func NewProcessor(c *classify.Classifier) *Processor {
	if c == nil {
		c = classify.Default()
	}
	return &Processor{classifier: c}
}

// Process builds the normalized record for entry as of now.
func (p *Processor) Process(entry model.RawEntry, now time.Time) model.Record {
	rec := model.Record{RawEntry: entry}

	rec.Classification = p.classifier.Classify(entry.Title)
	if rec.Classification == nil {
		if clean := classify.CleanTitle(entry.Title); clean != "" {
			rec.Classification = &model.Classification{
				Category:     GeneralCategory,
				FilterName:   clean,
				SpecificName: clean,
				DisplayName:  clean,
				Color:        GeneralColor,
			}
		}
	}

	rec.Roster = roster.Parse(entry.Description)
	rec.Status = occupancy.StatusAt(now, entry.Start, entry.End)
	rec.CurrentCapacity, rec.MaxCapacity = occupancy.Capacity(entry.Title)

	return rec
}

// ProcessBatch processes every entry in order. A failure on one entry
// degrades that record to its raw fields and status; it never drops the
// rest of the batch.
func (p *Processor) ProcessBatch(entries []model.RawEntry, now time.Time) []model.Record {
	out := make([]model.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, p.processSafe(e, now))
	}
	return out
}

func (p *Processor) processSafe(entry model.RawEntry, now time.Time) (rec model.Record) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("process entry failed; using bare record", fmt.Errorf("panic: %v", r), "id", entry.ID)
			rec = model.Record{
				RawEntry: entry,
				Roster:   model.Roster{Guests: []model.Guest{}},
				Status:   occupancy.StatusAt(now, entry.Start, entry.End),
			}
		}
	}()
	return p.Process(entry, now)
}
