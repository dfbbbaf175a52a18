package kernel

// Page carries pagination metadata for list queries.
type Page struct {
	Number int `json:"page"`      // Current page number (1-based)
	Size   int `json:"page_size"` // Records per page
	Total  int `json:"total"`     // Total matching records
	Pages  int `json:"pages"`     // Total pages
}

// Paginated is a generic container for one page of results.
type Paginated[T any] struct {
	Items []T  `json:"items"`
	Page  Page `json:"pagination"`
	Empty bool `json:"empty"`
}

// NewPaginated builds a paginated result, computing the page count.
func NewPaginated[T any](items []T, page, size, total int) Paginated[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Paginated[T]{
		Items: items,
		Page:  Page{Number: page, Size: size, Total: total, Pages: pages},
		Empty: len(items) == 0,
	}
}

// HasNext reports whether more pages follow the current one.
func (p Paginated[T]) HasNext() bool { return p.Page.Number < p.Page.Pages }

// HasPrevious reports whether pages precede the current one.
func (p Paginated[T]) HasPrevious() bool { return p.Page.Number > 1 }

// PaginationOptions holds options for list queries.
type PaginationOptions struct {
	Page     int // 1-based
	PageSize int
}
