package models

import (
	"strconv"

	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

const (
	DefaultPageSize = 20
	MinPageSize     = 5
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePagination validates page/pageSize query values. Empty values take the
// defaults; out-of-range values are a ValidationError, not silently clamped.
func ParsePagination(pageStr, pageSizeStr string) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}

	if pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return p, utils.NewValidationError("page must be a positive integer")
		}
		p.Page = page
	}
	if pageSizeStr != "" {
		size, err := strconv.Atoi(pageSizeStr)
		if err != nil || size < MinPageSize || size > MaxPageSize {
			return p, utils.NewValidationError("pageSize must be between %d and %d", MinPageSize, MaxPageSize)
		}
		p.PageSize = size
	}
	return p, nil
}

type PagedResult[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}
