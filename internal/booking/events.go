package booking

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated  EventType = "booking.created"
	EventApproved EventType = "booking.approved"
	EventRejected EventType = "booking.rejected"
	EventCanceled EventType = "booking.canceled"
	EventDeleted  EventType = "booking.deleted"
)

// Event describes a change to one booking.
type Event struct {
	Type       EventType `json:"type"`
	BookingID  string    `json:"booking_id"`
	ItemID     string    `json:"item_id"`
	BookerID   string    `json:"booker_id"`
	Status     Status    `json:"status"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers booking events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

func newEvent(t EventType, b *Booking, at time.Time) Event {
	return Event{
		Type:       t,
		BookingID:  b.ID,
		ItemID:     b.ItemID,
		BookerID:   b.BookerID,
		Status:     b.Status,
		Start:      b.Range.Start,
		End:        b.Range.End,
		OccurredAt: at,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
