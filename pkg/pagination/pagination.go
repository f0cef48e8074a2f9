package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Params is a page request derived from ?page=&per_page=.
type Params struct {
	Page    int
	PerPage int
}

// Limit and Offset translate the page request into SQL terms.
func (p Params) Limit() int  { return p.PerPage }
func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// FromRequest reads page and per_page, ignoring malformed or out-of-range
// values. per_page is capped at 100.
func FromRequest(r *http.Request) Params {
	p := Params{Page: 1, PerPage: defaultPerPage}
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		p.PerPage = min(v, maxPerPage)
	}
	return p
}

// Page is a paginated list response body.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPage assembles a Page. A nil items slice is encoded as [].
func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := (total + p.PerPage - 1) / p.PerPage
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}
