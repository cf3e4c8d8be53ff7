package order

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"

	"github.com/xenking/order-management/internal/domain/page"
	"github.com/xenking/order-management/internal/domain/pricing"
	"github.com/xenking/order-management/internal/domain/product"
)

// Sentinel errors reported inside order validation failures.
var (
	ErrEmptyItems        = errors.New("at least one item is required")
	ErrNullItem          = errors.New("order item cannot be null")
	ErrProductIDRequired = errors.New("productId is required and must not be 0")
)

// ProductNotFoundError indicates one or more requested products do not exist.
type ProductNotFoundError struct {
	ProductIDs []int64
}

func (e *ProductNotFoundError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("products not found: %s", strings.Join(ids, ", "))
}

// CreateRequest holds the input for placing an order. A nil entry in Items
// stands for an item the client sent as null.
type CreateRequest struct {
	Items []*Item
}

// Invoice is the priced breakdown of a stored order.
type Invoice struct {
	OrderID int64
	pricing.Invoice
}

// Service encapsulates order placement and invoicing.
type Service struct {
	products product.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
	}
}

// Create validates every item, checks all referenced products exist with a
// single batch lookup, and persists the order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, &validate.Error{Fields: []validate.FieldError{
			{Name: "items", Error: ErrEmptyItems},
		}}
	}

	var (
		failures []validate.FieldError
		distinct = make(map[int64]struct{}, len(req.Items))
	)
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item == nil {
			failures = append(failures, validate.FieldError{Name: field, Error: ErrNullItem})
			continue
		}
		if item.ProductID == 0 {
			failures = append(failures, validate.FieldError{Name: field + ".productId", Error: ErrProductIDRequired})
		}
		if err := (validate.Int{MinSet: true, Min: 1, MaxSet: true, Max: product.MaxQuantity}).Validate(int64(item.Quantity)); err != nil {
			failures = append(failures, validate.FieldError{Name: field + ".quantity", Error: err})
		}
		distinct[item.ProductID] = struct{}{}
	}
	if len(failures) > 0 {
		return nil, &validate.Error{Fields: failures}
	}

	ids := make([]int64, 0, len(distinct))
	for id := range distinct {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, &ProductNotFoundError{ProductIDs: missing}
	}

	o := &Order{Items: make([]Item, len(req.Items))}
	for i, item := range req.Items {
		o.Items[i] = *item
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// List returns one page of orders with their items.
func (s *Service) List(ctx context.Context, p page.Params) (page.Result[Order], error) {
	if err := p.Validate(); err != nil {
		return page.Result[Order]{}, err
	}

	orders, total, err := s.orders.List(ctx, p)
	if err != nil {
		return page.Result[Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return page.NewResult(orders, total, p), nil
}

// Invoice prices the stored order id with the current catalog.
func (s *Service) Invoice(ctx context.Context, id int64) (*Invoice, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	distinct := make(map[int64]struct{}, len(o.Items))
	items := make([]pricing.Item, len(o.Items))
	for i, item := range o.Items {
		distinct[item.ProductID] = struct{}{}
		items[i] = pricing.Item{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	ids := make([]int64, 0, len(distinct))
	for pid := range distinct {
		ids = append(ids, pid)
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products for order %d: %w", id, err)
	}
	if missing := missingIDs(ids, fetched); len(missing) > 0 {
		// Products are never deleted, so this is a store inconsistency.
		return nil, errors.Errorf("order %d references missing products %v", id, missing)
	}

	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	return &Invoice{
		OrderID: o.ID,
		Invoice: pricing.ComputeInvoice(items, byID),
	}, nil
}

// missingIDs returns the ids with no matching product, in the order of ids.
func missingIDs(ids []int64, found []product.Product) []int64 {
	present := make(map[int64]struct{}, len(found))
	for _, p := range found {
		present[p.ID] = struct{}{}
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
