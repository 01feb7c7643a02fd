package listctl

import (
	"slices"
	"strconv"
	"strings"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata for a page of total records.
func NewPagination(page, pageSize, total int) Pagination {
	if pageSize <= 0 {
		pageSize = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := TotalPages(total, pageSize)
	return Pagination{
		Page:       ClampPage(page, totalPages),
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// TotalPages returns ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// LastPage is the highest valid page; an empty result still has page 1.
func LastPage(totalPages int) int {
	return max(1, totalPages)
}

// ClampPage forces page into [1, LastPage(totalPages)].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	return min(page, LastPage(totalPages))
}

// ParsePageInput validates manually entered page text. Numbers are clamped
// into the valid range; anything else falls back to current.
func ParsePageInput(text string, current, totalPages int) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return ClampPage(current, totalPages)
	}
	return ClampPage(n, totalPages)
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Window returns at most size page numbers centred on the current page.
func (p Pagination) Window(size int) []int {
	last := LastPage(p.TotalPages)
	if size <= 0 || size > last {
		size = last
	}
	start := p.Page - size/2
	start = max(1, min(start, last-size+1))
	pages := make([]int, 0, size)
	for n := start; n < start+size; n++ {
		pages = append(pages, n)
	}
	return pages
}

// First is the 1-based index of the first record on the page, 0 when empty.
func (p Pagination) First() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// Last is the 1-based index of the last record on the page.
func (p Pagination) Last() int {
	return min(p.Page*p.PageSize, p.Total)
}

func allowedPageSize(screen Screen, size int) bool {
	return slices.Contains(screen.PageSizes, size)
}
