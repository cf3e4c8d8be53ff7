// Package page holds the pagination parameters and result shape shared by
// every listing operation.
package page

import (
	"math"

	"github.com/ogen-go/ogen/validate"
)

const (
	// DefaultPage is used when the client omits the page parameter.
	DefaultPage = 1
	// DefaultSize is used when the client omits the pageSize parameter.
	DefaultSize = 10
	// MaxSize is the largest accepted pageSize.
	MaxSize = 100
	// MaxPage is the largest accepted page. Offset stays within int32 for
	// every accepted pageSize.
	MaxPage = math.MaxInt32/MaxSize + 1
)

// Params selects a single page of a listing.
type Params struct {
	Page int
	Size int
}

// Default returns the parameters used when the client sends none.
func Default() Params {
	return Params{Page: DefaultPage, Size: DefaultSize}
}

// Validate reports every out-of-range field as a *validate.Error.
func (p Params) Validate() error {
	var failures []validate.FieldError
	if err := (validate.Int{MinSet: true, Min: 1, MaxSet: true, Max: MaxPage}).Validate(int64(p.Page)); err != nil {
		failures = append(failures, validate.FieldError{Name: "page", Error: err})
	}
	if err := (validate.Int{MinSet: true, Min: 1, MaxSet: true, Max: MaxSize}).Validate(int64(p.Size)); err != nil {
		failures = append(failures, validate.FieldError{Name: "pageSize", Error: err})
	}
	if len(failures) > 0 {
		return &validate.Error{Fields: failures}
	}
	return nil
}

// Offset is the number of rows skipped before the page starts.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Size
}

// Limit is the maximum number of rows in the page.
func (p Params) Limit() int {
	return p.Size
}

// Result is one page of T plus the total number of matching rows.
type Result[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	PageSize   int
}

// NewResult builds a Result echoing the requested parameters.
func NewResult[T any](items []T, total int, p Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		TotalCount: total,
		Page:       p.Page,
		PageSize:   p.Size,
	}
}
