package pagination

import (
	"math"

	"gorm.io/gorm"
)

const (
	// DefaultLimit is used when a request omits or zeroes the limit.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100
	// MaxPage caps the page number so Offset cannot overflow.
	MaxPage = math.MaxInt32 / MaxLimit
)

// PageRequest holds pagination parameters parsed from query strings.
type PageRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Defaults normalizes the request: page starts at 1 and is capped at MaxPage,
// limit falls back to defaultLimit (or DefaultLimit when that is unset) and
// is capped at MaxLimit.
func (p *PageRequest) Defaults(defaultLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset returns the number of rows to skip for the current page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the metadata block returned alongside a page of results.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewPagination computes page metadata for total matching rows.
func NewPagination(total int64, req PageRequest) Pagination {
	pages := 0
	if req.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(req.Limit)))
	}
	return Pagination{
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
		Pages: pages,
	}
}

// PageResponse wraps a paginated list of items with metadata.
type PageResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPageResponse creates a PageResponse from the given data and total count.
func NewPageResponse[T any](data []T, req PageRequest, total int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{
		Data:       data,
		Pagination: NewPagination(total, req),
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.Limit)
	}
}
