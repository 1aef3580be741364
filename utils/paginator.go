package utils

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// DefaultPerPage is the feed page size.
const DefaultPerPage = 10

// Page describes one page of an ordered sequence.
type Page struct {
	Number   int
	PerPage  int
	Total    int64
	NumPages int
	Offset   int
}

// HasPrevious reports whether a page exists before this one.
func (p Page) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page exists after this one.
func (p Page) HasNext() bool { return p.Number < p.NumPages }

// PreviousNumber is the previous page number, or 1.
func (p Page) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return 1
}

// NextNumber is the next page number, or the last page.
func (p Page) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.NumPages
}

// Numbers lists every page number, for page links.
func (p Page) Numbers() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Paginate computes the page for a sequence of total items.
// An empty sequence still has one page; numbers below 1 give the first page
// and numbers past the end give the last page.
func Paginate(total int64, perPage, number int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if total < 0 {
		total = 0
	}
	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Page{
		Number:   number,
		PerPage:  perPage,
		Total:    total,
		NumPages: numPages,
		Offset:   (number - 1) * perPage,
	}
}

// PaginateSlice returns the items on the requested page of an already ordered slice.
func PaginateSlice[T any](items []T, perPage, number int) ([]T, Page) {
	page := Paginate(int64(len(items)), perPage, number)
	end := page.Offset + page.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end], page
}

// ParsePageNumber reads a ?page= value; anything that is not a positive integer means page 1.
func ParsePageNumber(raw string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
		return n
	}
	return 1
}

// PageScope limits a query to the rows of page.
func PageScope(page Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(page.Offset).Limit(page.PerPage)
	}
}
