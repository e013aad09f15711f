package item

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "item not found")
	ErrOwnerNotFound    = apperror.New(http.StatusNotFound, "owner not found")
	ErrForbidden        = apperror.New(http.StatusForbidden, "only the owner can modify this item")
	ErrEmptyName        = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrEmptyDescription = apperror.New(http.StatusBadRequest, "description cannot be empty")
)

// Item is something a user lends out.
type Item struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter narrows a listing. OwnerID and Text are mutually independent;
// Text switches the listing into search mode (available items only).
type Filter struct {
	OwnerID string
	Text    string
	Page    paging.Page
}
