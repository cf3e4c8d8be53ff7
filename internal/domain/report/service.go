package report

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/product"
)

// ProductSource lists the products that currently carry a discount.
type ProductSource interface {
	ListDiscounted(ctx context.Context) ([]product.Product, error)
}

// LineSource lists historical order lines of discounted products.
type LineSource interface {
	DiscountedLines(ctx context.Context) ([]order.LineRecord, error)
}

// Service produces the discount utilization report.
type Service struct {
	products ProductSource
	lines    LineSource
}

// NewService creates a report Service.
func NewService(products ProductSource, lines LineSource) *Service {
	return &Service{products: products, lines: lines}
}

// DiscountedProducts loads discounted products and their order lines
// concurrently and aggregates them.
func (s *Service) DiscountedProducts(ctx context.Context) ([]Row, error) {
	var (
		products []product.Product
		lines    []order.LineRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = s.products.ListDiscounted(gctx); err != nil {
			return errors.Wrap(err, "list discounted products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if lines, err = s.lines.DiscountedLines(gctx); err != nil {
			return errors.Wrap(err, "list discounted lines")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Build(products, lines), nil
}
