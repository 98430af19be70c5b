package dto

import (
	"io"
	"math"
)

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults for zero values.
func (q *PageQuery) Normalize() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(q PageQuery, total int64) PaginationMeta {
	pages := 0
	if q.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(q.Limit)))
	}
	return PaginationMeta{
		CurrentPage: q.Page,
		TotalPages:  pages,
		TotalItems:  total,
		Limit:       q.Limit,
	}
}

type Paginated[T any] struct {
	Data []T           `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type RegionRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type UserRef struct {
	UserID   string `json:"user_id"`
	NickName string `json:"nick_name"`
	FullName string `json:"full_name"`
}

// ImageFile is an uploaded image handed from a handler to a service.
type ImageFile struct {
	Reader   io.Reader
	FileName string
}
