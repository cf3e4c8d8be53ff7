package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/order-management/internal/domain/page"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order represents a placed customer order. Orders are immutable once created.
type Order struct {
	ID        int64
	Items     []Item
	CreatedAt time.Time
}

// Item represents a single line item in an order.
type Item struct {
	ProductID int64
	Quantity  int
}

// LineRecord is a historical order line together with its owning order.
type LineRecord struct {
	OrderID   int64
	ProductID int64
	Quantity  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists o and its items atomically, setting the store-assigned
	// ID and CreatedAt.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	// List returns one page of orders with items loaded, and the total count.
	List(ctx context.Context, p page.Params) ([]Order, int, error)
	// DiscountedLines returns every historical order line whose quantity
	// reaches the current discount threshold of its product.
	DiscountedLines(ctx context.Context) ([]LineRecord, error)
}
