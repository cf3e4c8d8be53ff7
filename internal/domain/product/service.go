package product

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/page"
)

const (
	// MaxScale is the number of fractional digits stored for prices and
	// percentages.
	MaxScale = 4
	// MaxQuantity is the largest quantity or threshold the store can hold.
	MaxQuantity = math.MaxInt32
)

var (
	errNotPositive    = errors.New("must be greater than 0")
	errPercentRange   = errors.New("must be between 0 and 100")
	errNegative       = errors.New("must not be negative")
	errThresholdUnset = errors.New("must be at least 1 when percentage is set")
	errThresholdRange = fmt.Errorf("must not exceed %d", MaxQuantity)
	errScale          = fmt.Errorf("must have at most %d decimal places", MaxScale)
	errPriceTooLarge  = errors.New("must be less than 10^15")
)

var (
	hundred  = decimal.NewFromInt(100)
	maxPrice = decimal.New(1, 15)
)

// exceedsScale reports whether d has significant digits past MaxScale.
func exceedsScale(d decimal.Decimal) bool {
	return !d.Round(MaxScale).Equal(d)
}

// CreateRequest holds the input for adding a product to the catalog.
type CreateRequest struct {
	Name  string
	Price decimal.Decimal
}

// ListRequest holds the input for a filtered product listing.
type ListRequest struct {
	Name string
	Page page.Params
}

// DiscountRequest holds the input for the discount update operation.
type DiscountRequest struct {
	Percentage        decimal.Decimal
	QuantityThreshold int
}

// Service encapsulates catalog business rules.
type Service struct {
	products Repository
}

// NewService creates a catalog Service.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// Create validates the request and persists a new product without a discount.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	name := strings.TrimSpace(req.Name)

	var failures []validate.FieldError
	if err := (validate.String{MinLength: 1, MinLengthSet: true}).Validate(name); err != nil {
		failures = append(failures, validate.FieldError{Name: "name", Error: err})
	}
	switch {
	case !req.Price.IsPositive():
		failures = append(failures, validate.FieldError{Name: "price", Error: errNotPositive})
	case exceedsScale(req.Price):
		failures = append(failures, validate.FieldError{Name: "price", Error: errScale})
	case req.Price.GreaterThanOrEqual(maxPrice):
		failures = append(failures, validate.FieldError{Name: "price", Error: errPriceTooLarge})
	}
	if len(failures) > 0 {
		return nil, &validate.Error{Fields: failures}
	}

	p := &Product{Name: name, Price: req.Price}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// List returns one page of products whose name contains req.Name.
func (s *Service) List(ctx context.Context, req ListRequest) (page.Result[Product], error) {
	if err := req.Page.Validate(); err != nil {
		return page.Result[Product]{}, err
	}

	filter := Filter{Name: strings.TrimSpace(req.Name)}
	items, total, err := s.products.List(ctx, filter, req.Page)
	if err != nil {
		return page.Result[Product]{}, fmt.Errorf("list products: %w", err)
	}
	return page.NewResult(items, total, req.Page), nil
}

// SetDiscount replaces or clears the discount of product id.
func (s *Service) SetDiscount(ctx context.Context, id int64, req DiscountRequest) (*Product, error) {
	d, err := NewDiscount(req.Percentage, req.QuantityThreshold)
	if err != nil {
		return nil, err
	}

	p, err := s.products.SetDiscount(ctx, id, d)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set discount for product %d: %w", id, err)
	}
	return p, nil
}

// NewDiscount validates a discount definition. A zero percentage yields a nil
// Discount, which clears any existing discount.
func NewDiscount(percentage decimal.Decimal, threshold int) (*Discount, error) {
	var failures []validate.FieldError
	switch {
	case percentage.IsNegative() || percentage.GreaterThan(hundred):
		failures = append(failures, validate.FieldError{Name: "percentage", Error: errPercentRange})
	case exceedsScale(percentage):
		failures = append(failures, validate.FieldError{Name: "percentage", Error: errScale})
	}
	switch {
	case threshold < 0:
		failures = append(failures, validate.FieldError{Name: "quantityThreshold", Error: errNegative})
	case threshold > MaxQuantity:
		failures = append(failures, validate.FieldError{Name: "quantityThreshold", Error: errThresholdRange})
	case threshold == 0 && percentage.IsPositive():
		failures = append(failures, validate.FieldError{Name: "quantityThreshold", Error: errThresholdUnset})
	}
	if len(failures) > 0 {
		return nil, &validate.Error{Fields: failures}
	}

	if percentage.IsZero() {
		return nil, nil
	}
	return &Discount{Percentage: percentage, QuantityThreshold: threshold}, nil
}
