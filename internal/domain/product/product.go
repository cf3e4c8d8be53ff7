package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/page"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	// Discount is nil when the product has no bulk discount.
	Discount *Discount
}

// Discount is a bulk-quantity discount: Percentage off the line when at least
// QuantityThreshold units are bought in a single order line.
type Discount struct {
	Percentage        decimal.Decimal
	QuantityThreshold int
}

// Applies reports whether the discount is active for a line of qty units.
func (d *Discount) Applies(qty int) bool {
	if d == nil || !d.Percentage.IsPositive() || d.QuantityThreshold <= 0 {
		return false
	}
	return qty >= d.QuantityThreshold
}

// Filter narrows a product listing.
type Filter struct {
	// Name is a case-insensitive substring match. Empty means no filter.
	Name string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	// Create inserts p and replaces it with the stored row, including the
	// store-assigned ID.
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	// GetByIDs returns the products matching any of ids. Missing ids are
	// silently absent from the result.
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	// List returns one page of products matching f and the total match count.
	List(ctx context.Context, f Filter, p page.Params) ([]Product, int, error)
	// SetDiscount replaces the discount of product id. A nil d clears it.
	SetDiscount(ctx context.Context, id int64, d *Discount) (*Product, error)
	// ListDiscounted returns every product with an active discount definition.
	ListDiscounted(ctx context.Context) ([]Product, error)
}
