package request

import "github.com/nekogravitycat/item-share-backend/internal/pkg/paging"

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ListParams carries the from/size window every list endpoint accepts.
type ListParams struct {
	From int `form:"from,default=0"`
	Size int `form:"size,default=10"`
}

// Page validates the window and converts it into a paging.Page.
func (p ListParams) Page() (paging.Page, error) {
	return paging.New(p.From, p.Size)
}
