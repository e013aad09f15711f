package response

// PageResponse is the standard wrapper for list endpoints.
// From and Size echo the request; Page is the zero-based page actually served.
type PageResponse[T any] struct {
	Items []T `json:"items"`
	From  int `json:"from"`
	Size  int `json:"size"`
	Page  int `json:"page"`
	Total int `json:"total"`
}

// NewPageResponse is a helper to quickly create a response
func NewPageResponse[T any](items []T, from, size, page, total int) PageResponse[T] {
	// Handle empty slice to avoid JSON outputting null
	if items == nil {
		items = make([]T, 0)
	}

	return PageResponse[T]{
		Items: items,
		From:  from,
		Size:  size,
		Page:  page,
		Total: total,
	}
}
