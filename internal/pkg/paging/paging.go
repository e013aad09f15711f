// Package paging implements the from/size window used by list endpoints.
//
// A request names the index of a record it wants to see (From) and how many
// records a page holds (Size). The server serves the whole page containing
// that record: page index = From / Size (floor), so From values that are not
// multiples of Size snap back to the start of their page.
package paging

import (
	"net/http"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
)

const DefaultSize = 10

var ErrInvalidPage = apperror.New(http.StatusBadRequest, "from must be >= 0 and size must be > 0")

// Page is a validated from/size window.
type Page struct {
	From int
	Size int
}

// New validates from and size.
func New(from, size int) (Page, error) {
	if from < 0 || size <= 0 {
		return Page{}, ErrInvalidPage
	}
	return Page{From: from, Size: size}, nil
}

// Index returns the zero-based page number.
func (p Page) Index() int {
	if p.From > 0 && p.Size > 0 {
		return p.From / p.Size
	}
	return 0
}

// Offset returns the number of records skipped before this page.
func (p Page) Offset() int {
	return p.Index() * p.Size
}

// Limit returns the maximum number of records on this page.
func (p Page) Limit() int {
	return p.Size
}

// Slice returns the records of items that fall inside the page.
// items must already be in presentation order.
func Slice[T any](items []T, p Page) []T {
	offset := p.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
