package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrUserNotFound      = apperror.New(http.StatusNotFound, "user not found")
	ErrItemNotFound      = apperror.New(http.StatusNotFound, "item not found")
	ErrForbidden         = apperror.New(http.StatusForbidden, "permission denied")
	ErrUserMismatch      = apperror.New(http.StatusForbidden, "owner cannot book their own item")
	ErrInvalidTransition = apperror.New(http.StatusBadRequest, "booking status cannot be changed")
	ErrTimeOverlap       = apperror.New(http.StatusConflict, "booking time overlaps with an existing booking")
	ErrInvalidTimeRange  = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrStartTimePast     = apperror.New(http.StatusBadRequest, "cannot create booking in the past")
	ErrItemUnavailable   = apperror.New(http.StatusBadRequest, "item is not available for booking")
	ErrUnknownState      = apperror.New(http.StatusBadRequest, "unknown state")
)

// Booking is one reservation of an item by a booker.
// ItemName, OwnerID and BookerName are filled by the store on reads.
type Booking struct {
	ID         string
	ItemID     string
	ItemName   string
	OwnerID    string
	BookerID   string
	BookerName string
	Range      TimeRange
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Approve moves a WAITING booking to APPROVED. ownerID is the item's current owner.
func (b *Booking) Approve(actorID, ownerID string) error {
	if actorID != ownerID {
		return ErrForbidden
	}
	return b.transition(StatusApproved)
}

// Reject moves a WAITING booking to REJECTED. ownerID is the item's current owner.
func (b *Booking) Reject(actorID, ownerID string) error {
	if actorID != ownerID {
		return ErrForbidden
	}
	return b.transition(StatusRejected)
}

// Cancel withdraws the booking. Only the booker may cancel, and a booking
// whose period has already started can still be canceled.
func (b *Booking) Cancel(actorID string) error {
	if actorID != b.BookerID {
		return ErrForbidden
	}
	return b.transition(StatusCanceled)
}

// VisibleTo reports whether userID may read the booking.
func (b *Booking) VisibleTo(userID string) bool {
	return userID == b.BookerID || userID == b.OwnerID
}

func (b *Booking) transition(target Status) error {
	if !b.Status.CanTransitionTo(target) {
		return apperror.Wrap(ErrInvalidTransition, http.StatusBadRequest,
			fmt.Sprintf("cannot change booking status from %s to %s", b.Status, target))
	}
	b.Status = target
	return nil
}
