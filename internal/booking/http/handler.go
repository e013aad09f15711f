package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/item-share-backend/internal/auth"
	"github.com/nekogravitycat/item-share-backend/internal/booking"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/request"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), auth.GetUserID(c), booking.CreateRequest{
		ItemID: req.ItemID,
		Start:  req.Start,
		End:    req.End,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	b, err := h.service.Get(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// ListMine lists bookings the caller made.
func (h *Handler) ListMine(c *gin.Context) {
	h.list(c, h.service.ListByBooker)
}

// ListOwned lists bookings of items the caller owns.
func (h *Handler) ListOwned(c *gin.Context) {
	h.list(c, h.service.ListByOwner)
}

type listFunc func(ctx context.Context, userID string, state booking.State, page paging.Page) ([]*booking.Booking, int, error)

func (h *Handler) list(c *gin.Context, fetch listFunc) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		if stateErr := stateError(err); stateErr != nil {
			response.Error(c, stateErr)
			return
		}
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	state, err := booking.ParseState(req.State)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := req.Page()
	if err != nil {
		response.Error(c, err)
		return
	}

	bookings, total, err := fetch(c.Request.Context(), auth.GetUserID(c), state, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(newBookingResponses(bookings), page.From, page.Size, page.Index(), total))
}

// UpdateApproval approves (approved=true) or rejects (approved=false) a booking.
func (h *Handler) UpdateApproval(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	var req ApprovalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "approved must be true or false", err)
		return
	}

	b, err := h.service.UpdateApproval(c.Request.Context(), uri.ID, auth.GetUserID(c), *req.Approved)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), uri.ID, auth.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
