// Package pagination splits ordered sequences into fixed-size pages.
package pagination

import (
	"strconv"
	"strings"
)

// PageSize is the number of posts shown on a feed page.
const PageSize = 10

// Page is one page of an ordered sequence.
type Page[T any] struct {
	Items              []T   `json:"items"`
	Number             int   `json:"number"`
	PageSize           int   `json:"page_size"`
	TotalCount         int64 `json:"total_count"`
	TotalPages         int   `json:"total_pages"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     int   `json:"next_page_number,omitempty"`
	PreviousPageNumber int   `json:"previous_page_number,omitempty"`
	StartIndex         int64 `json:"start_index"`
	EndIndex           int64 `json:"end_index"`
}

// ParsePage reads a page query value. Anything that is not an integer yields 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// NumPages returns how many pages total items fill. An empty sequence still has one page.
func NumPages(total int64, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Clamp maps a requested page number into [1, NumPages].
func Clamp(number int, total int64, size int) int {
	if number < 1 {
		return 1
	}
	if last := NumPages(total, size); number > last {
		return last
	}
	return number
}

// Window returns the OFFSET/LIMIT pair for a page along with the clamped page number.
func Window(number int, total int64, size int) (offset, limit, clamped int) {
	if size <= 0 {
		size = PageSize
	}
	clamped = Clamp(number, total, size)
	return (clamped - 1) * size, size, clamped
}

// New builds a page around items already fetched for the clamped page number.
func New[T any](items []T, number int, total int64, size int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	number = Clamp(number, total, size)
	pages := NumPages(total, size)
	if items == nil {
		items = []T{}
	}

	p := Page[T]{
		Items:       items,
		Number:      number,
		PageSize:    size,
		TotalCount:  total,
		TotalPages:  pages,
		HasNext:     number < pages,
		HasPrevious: number > 1,
	}
	if p.HasNext {
		p.NextPageNumber = number + 1
	}
	if p.HasPrevious {
		p.PreviousPageNumber = number - 1
	}
	if total > 0 {
		p.StartIndex = int64((number-1)*size) + 1
		p.EndIndex = p.StartIndex + int64(len(items)) - 1
	}
	return p
}

// Paginate slices an in-memory sequence.
func Paginate[T any](items []T, number, size int) Page[T] {
	total := int64(len(items))
	offset, limit, clamped := Window(number, total, size)
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	var window []T
	if offset < len(items) {
		window = items[offset:end]
	}
	return New(window, clamped, total, limit)
}
