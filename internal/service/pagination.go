package service

import (
	"math"
	"strconv"

	"github.com/sh1zzle/activetime-project/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ParsePage reads 1-based page and limit query values, falling back to
// page 1 of 10 for anything missing or out of range.
func ParsePage(pageStr, limitStr string) (page, limit int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func (p Pagination) ListOptions() storage.ListOptions {
	return storage.ListOptions{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

func NewPagination(page, limit, total int) Pagination {
	return Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}
