// Package pagination returns bounded windows over ordered collections.
package pagination

import (
	"context"
	"fmt"
)

// InvalidPageSizeError is returned for a page size below 1.
type InvalidPageSizeError struct {
	PageSize int
}

func (e *InvalidPageSizeError) Error() string {
	return fmt.Sprintf("pagination: page size must be positive, got %d", e.PageSize)
}

// Source is a collection ordered newest first.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, offset, limit int) ([]T, error)
}

type Pagination struct {
	From        int `json:"from"`
	To          int `json:"to"`
	CurrentPage int `json:"currentPage"`
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
}

type PageResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Empty reports whether the page holds no items. From > To signals the same.
func (p PageResult[T]) Empty() bool {
	return len(p.Data) == 0
}

// List fetches page (1-based) of src.
//
// A page past the last one is moved back to the last page. A page below 1
// is left alone and reaches the source as a negative offset; callers keep
// (page-1)*pageSize within int.
func List[T any](ctx context.Context, src Source[T], page, pageSize int) (*PageResult[T], error) {
	if pageSize <= 0 {
		return nil, &InvalidPageSizeError{PageSize: pageSize}
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalPages := (total + pageSize - 1) / pageSize

	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * pageSize
	data, err := src.Fetch(ctx, offset, pageSize)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []T{}
	}

	return &PageResult[T]{
		Data: data,
		Pagination: Pagination{
			From:        offset + 1,
			To:          offset + len(data),
			CurrentPage: page,
			Total:       total,
			TotalPages:  totalPages,
		},
	}, nil
}
