// Package orm holds query helpers shared by the storage backends.
package orm

import (
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
)

// Pagination describes one page of a listing. Pages is ceil(Total/Limit).
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination normalises a requested page and limit. Non-positive values
// take the defaults; limit is capped at max when max > 0. Page is clamped so
// Offset cannot overflow.
func NewPagination(page, limit, max int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if max > 0 && limit > max {
		limit = max
	}
	if last := math.MaxInt / limit; page > last {
		page = last
	}
	return Pagination{Page: page, Limit: limit}
}

// Offset is the number of rows skipped before this page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// WithTotal returns p with Total set and Pages derived from it.
func (p Pagination) WithTotal(total int64) Pagination {
	p.Total = total
	p.Pages = 0
	if p.Limit > 0 {
		p.Pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return p
}

// Paginate is a GORM scope applying the page window.
func Paginate(p Pagination) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}
