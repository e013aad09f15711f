package booking

import (
	"fmt"
	"time"
)

// TimeRange is the period an item is reserved for. Start is strictly before End.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange returns ErrInvalidTimeRange unless start < end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether r and o share any instant.
// Ranges that only touch (one ends exactly when the other starts) do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	latestStart := r.Start
	if o.Start.After(latestStart) {
		latestStart = o.Start
	}
	earliestEnd := r.End
	if o.End.Before(earliestEnd) {
		earliestEnd = o.End
	}
	return latestStart.Before(earliestEnd)
}

// Contains reports whether t lies in [Start, End], both ends inclusive.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%s - %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
