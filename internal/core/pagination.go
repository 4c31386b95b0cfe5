package core

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalog/internal/database"
)

// Paging defaults for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 1000

	// MaxOffset caps (page-1)*limit.
	MaxOffset = 1<<31 - 1
)

// PageRequest is the paging, sorting and search input of a list call.
// Zero values take the defaults.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// Pagination describes one page of a result set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// List is one page of items with its pagination block.
type List[T any] struct {
	Items      []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// normalize fills defaults and validates the request. maxLimit of zero
// means MaxPageSize.
func (r PageRequest) normalize(defLimit, maxLimit int) (PageRequest, error) {
	if maxLimit <= 0 {
		maxLimit = MaxPageSize
	}
	if r.Page == 0 {
		r.Page = DefaultPage
	}
	if r.Limit == 0 {
		r.Limit = defLimit
	}
	r.SortOrder = strings.ToLower(r.SortOrder)
	if r.SortOrder == "" {
		r.SortOrder = "asc"
	}
	r.Search = strings.TrimSpace(r.Search)

	c := newChecker("pagination", false)
	if r.Page < 1 {
		c.add("page", "must be at least 1")
	}
	if r.Limit < 1 || r.Limit > maxLimit {
		c.add("limit", "must be between 1 and "+strconv.Itoa(maxLimit))
	} else if r.Page > 1 && r.Page-1 > MaxOffset/r.Limit {
		c.add("page", "is too large for limit "+strconv.Itoa(r.Limit))
	}
	if r.SortOrder != "asc" && r.SortOrder != "desc" {
		c.add("sortOrder", "must be asc or desc")
	}
	return r, c.err()
}

// sort resolves SortBy against the entity's whitelist. Unknown fields fall
// back to def.
func (r PageRequest) sort(cols database.SortColumns, def string) database.Sort {
	return cols.Resolve(r.SortBy, r.SortOrder, def)
}

func (r PageRequest) page() database.Page {
	return database.Page{Limit: r.Limit, Offset: (r.Page - 1) * r.Limit}
}

// NewPagination computes the pagination block for page/limit over total rows.
func NewPagination(page, limit int, total int64) Pagination {
	var totalPages int64
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(page) < totalPages,
		HasPrev:    page > 1,
	}
}
