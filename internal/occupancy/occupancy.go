// Package occupancy extracts "N of M" capacity figures from titles and
// derives lifecycle status from an entry's time span.
package occupancy

import (
	"regexp"
	"strconv"
	"time"

	"dailymanifest/internal/model"
)

var capacityPattern = regexp.MustCompile(`(\d+)\s+of\s+(\d+)`)

// Capacity returns the first "current of max" pair found in title. Both
// values are nil when the title has no such pair. current > max is
// returned as-is; overbooking is reported downstream.
func Capacity(title string) (current, max *int) {
	m := capacityPattern.FindStringSubmatch(title)
	if m == nil {
		return nil, nil
	}
	cur, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, nil
	}
	mx, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, nil
	}
	return &cur, &mx
}

// StatusAt derives the lifecycle status at now. Both ends of [start, end]
// count as in progress.
func StatusAt(now, start, end time.Time) model.Status {
	switch {
	case now.Before(start):
		return model.StatusUpcoming
	case now.After(end):
		return model.StatusCompleted
	default:
		return model.StatusInProgress
	}
}
