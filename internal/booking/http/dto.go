package http

import (
	"time"

	"github.com/nekogravitycat/item-share-backend/internal/booking"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/request"
	userHttp "github.com/nekogravitycat/item-share-backend/internal/user/http"
)

type CreateBookingRequest struct {
	ItemID string    `json:"item_id" binding:"required,uuid"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	State string `form:"state,default=ALL" binding:"booking_state"`
}

type ApprovalRequest struct {
	Approved *bool `form:"approved" binding:"required"`
}

type ItemTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type BookingResponse struct {
	ID        string           `json:"id"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Status    string           `json:"status"`
	Item      ItemTag          `json:"item"`
	Booker    userHttp.UserTag `json:"booker"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:        b.ID,
		Start:     b.Range.Start,
		End:       b.Range.End,
		Status:    string(b.Status),
		Item:      ItemTag{ID: b.ItemID, Name: b.ItemName},
		Booker:    userHttp.UserTag{ID: b.BookerID, Name: b.BookerName},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func newBookingResponses(bs []*booking.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, NewBookingResponse(b))
	}
	return out
}
