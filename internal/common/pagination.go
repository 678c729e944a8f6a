package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps the page size a client may ask for.
const MaxPerPage = 200

// Pagination is the metadata sent next to a paginated list.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads ?page= and ?limit=. Junk and non-positive values fall
// back to page 1 and defaultPerPage; limit is capped at MaxPerPage.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page, perPage = 1, defaultPerPage
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		perPage = min(l, MaxPerPage)
	}
	return page, perPage
}
