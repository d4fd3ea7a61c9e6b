package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params is a 1-based page request.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta describes where a page sits in the full result.
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// FromRequest reads ?page= and ?limit=. Missing or malformed values fall
// back to page 1 and defaultLimit; limit is capped at MaxLimit.
func FromRequest(r *http.Request, defaultLimit int) Params {
	p := Params{Page: DefaultPage, Limit: defaultLimit}
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = v
	}
	p.Validate()
	return p
}

// Validate clamps Page and Limit into range.
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta builds response metadata for total matching rows.
func (p Params) Meta(total int) Meta {
	pages := 1
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   pages,
		TotalRecords: total,
		HasNext:      p.Page < pages,
		HasPrevious:  p.Page > 1,
	}
}
