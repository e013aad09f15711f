package booking

import (
	"fmt"
	"net/http"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
)

// CheckAvailability returns an error wrapping ErrTimeOverlap when candidate
// overlaps any booking in existing that still holds its slot.
// existing may be in any order and may include bookings of other statuses.
func CheckAvailability(candidate TimeRange, existing []*Booking) error {
	for _, b := range existing {
		if !b.Status.Blocks() {
			continue
		}
		if candidate.Overlaps(b.Range) {
			return overlapError(b.Range)
		}
	}
	return nil
}

func overlapError(conflict TimeRange) error {
	return apperror.Wrap(ErrTimeOverlap, http.StatusConflict,
		fmt.Sprintf("booking time overlaps with existing booking (%s)", conflict))
}
