package repository

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageFilter selects one page of a list query.
type PageFilter struct {
	Page     int
	PageSize int
}

// Normalize clamps the filter to sane bounds.
func (f PageFilter) Normalize() PageFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f
}

func (f PageFilter) apply(query *gorm.DB) *gorm.DB {
	f = f.Normalize()
	return query.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
}
