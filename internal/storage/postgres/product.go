package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/page"
	"github.com/xenking/order-management/internal/domain/product"
)

const productColumns = `id, name, price, discount_percentage, discount_quantity_threshold`

const (
	createProductSQL = `INSERT INTO products (name, price, discount_percentage, discount_quantity_threshold)
		VALUES ($1, $2, $3, $4) RETURNING ` + productColumns

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	// An empty filter matches every product.
	countProductsSQL = `SELECT count(*) FROM products
		WHERE $1::text = '' OR strpos(lower(name), lower($1::text)) > 0`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE $1::text = '' OR strpos(lower(name), lower($1::text)) > 0
		ORDER BY id LIMIT $2 OFFSET $3`

	setDiscountSQL = `UPDATE products
		SET discount_percentage = $2, discount_quantity_threshold = $3
		WHERE id = $1 RETURNING ` + productColumns

	listDiscountedSQL = `SELECT ` + productColumns + ` FROM products
		WHERE discount_percentage IS NOT NULL ORDER BY id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts p and replaces it with the stored row.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	pct, threshold, err := discountParams(p.Discount)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	rows, err := r.pool.Query(ctx, createProductSQL, p.Name, p.Price, pct, threshold)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	*p = created
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Unknown IDs are
// silently absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// List returns one page of products whose name contains f.Name, ignoring
// case, together with the number of matches across all pages.
func (r *ProductRepository) List(ctx context.Context, f product.Filter, p page.Params) ([]product.Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countProductsSQL, f.Name).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.pool.Query(ctx, listProductsSQL, f.Name, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	return products, total, nil
}

// SetDiscount replaces the discount of product id. A nil d clears it.
func (r *ProductRepository) SetDiscount(ctx context.Context, id int64, d *product.Discount) (*product.Product, error) {
	pct, threshold, err := discountParams(d)
	if err != nil {
		return nil, fmt.Errorf("setting discount on product %d: %w", id, err)
	}
	rows, err := r.pool.Query(ctx, setDiscountSQL, id, pct, threshold)
	if err != nil {
		return nil, fmt.Errorf("setting discount on product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("setting discount on product %d: %w", id, err)
	}
	return &p, nil
}

// ListDiscounted returns every product that has a discount definition.
func (r *ProductRepository) ListDiscounted(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listDiscountedSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounted products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func discountParams(d *product.Discount) (*decimal.Decimal, *int32, error) {
	if d == nil {
		return nil, nil, nil
	}
	if d.QuantityThreshold < 1 || d.QuantityThreshold > math.MaxInt32 {
		return nil, nil, errors.Errorf("quantity threshold %d out of range", d.QuantityThreshold)
	}
	threshold := int32(d.QuantityThreshold)
	return &d.Percentage, &threshold, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p         product.Product
		pct       *decimal.Decimal
		threshold *int32
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &pct, &threshold)
	if pct != nil && threshold != nil {
		p.Discount = &product.Discount{
			Percentage:        *pct,
			QuantityThreshold: int(*threshold),
		}
	}
	return p, err
}
