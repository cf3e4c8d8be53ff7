package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/page"
)

const (
	createOrderSQL = `INSERT INTO orders DEFAULT VALUES RETURNING id, created_at`

	createOrderItemsSQL = `INSERT INTO order_items (order_id, product_id, quantity)
		SELECT $1, product_id, quantity
		FROM unnest($2::bigint[], $3::integer[]) WITH ORDINALITY AS t(product_id, quantity, ord)
		ORDER BY ord`

	getOrderByIDSQL = `SELECT id, created_at FROM orders WHERE id = $1`

	countOrdersSQL = `SELECT count(*) FROM orders`

	listOrdersSQL = `SELECT id, created_at FROM orders ORDER BY id LIMIT $1 OFFSET $2`

	listOrderItemsSQL = `SELECT order_id, product_id, quantity FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, id`

	discountedLinesSQL = `SELECT oi.order_id, oi.product_id, oi.quantity
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE p.discount_percentage IS NOT NULL
			AND oi.quantity >= p.discount_quantity_threshold
		ORDER BY oi.product_id, oi.order_id, oi.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	productIDs := make([]int64, len(o.Items))
	quantities := make([]int32, len(o.Items))
	for i, item := range o.Items {
		if item.Quantity < 1 || item.Quantity > math.MaxInt32 {
			return errors.Errorf("creating order: item %d quantity %d out of range", i, item.Quantity)
		}
		productIDs[i] = item.ProductID
		quantities[i] = int32(item.Quantity)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			id        int64
			createdAt time.Time
		)
		if err := tx.QueryRow(ctx, createOrderSQL).Scan(&id, &createdAt); err != nil {
			return errors.Wrap(err, "insert order")
		}
		if _, err := tx.Exec(ctx, createOrderItemsSQL, id, productIDs, quantities); err != nil {
			return errors.Wrap(err, "insert order items")
		}
		o.ID = id
		o.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}

// GetByID returns the order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns one page of orders ordered by id. Items for the whole page are
// loaded with a single query.
func (r *OrderRepository) List(ctx context.Context, p page.Params) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// DiscountedLines returns every order line whose product currently has a
// discount definition.
func (r *OrderRepository) DiscountedLines(ctx context.Context) ([]order.LineRecord, error) {
	rows, err := r.pool.Query(ctx, discountedLinesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounted lines: %w", err)
	}
	return pgx.CollectRows(rows, scanLineRecord)
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanLineRecord)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}

	for _, l := range lines {
		i := index[l.OrderID]
		orders[i].Items = append(orders[i].Items, order.Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.CreatedAt)
	return o, err
}

func scanLineRecord(row pgx.CollectableRow) (order.LineRecord, error) {
	var (
		l        order.LineRecord
		quantity int32
	)
	err := row.Scan(&l.OrderID, &l.ProductID, &quantity)
	l.Quantity = int(quantity)
	return l, err
}
