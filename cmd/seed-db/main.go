// Command seed-db loads a product catalog into the order-management store.
//
// The catalog is a JSON array of products, optionally gzip-compressed when
// the file name ends in .gz:
//
//	[{"name": "Crate", "price": 100, "discountPercentage": 15, "discountQuantityThreshold": 10}]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/order-management/internal/domain/page"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/storage/postgres"
)

type catalogEntry struct {
	Name                      string           `json:"name"`
	Price                     decimal.Decimal  `json:"price"`
	DiscountPercentage        *decimal.Decimal `json:"discountPercentage"`
	DiscountQuantityThreshold *int             `json:"discountQuantityThreshold"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
		force       bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "db/seed/products.json", "path to catalog JSON file (.json or .json.gz)")
	flag.BoolVar(&force, "force", false, "seed even when the catalog already has products")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile, force); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string, force bool) error {
	entries, err := readCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	lg.Info("Catalog loaded", zap.String("path", catalogFile), zap.Int("count", len(entries)))

	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolConfig{})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(pool)
	if !force {
		_, total, err := repo.List(ctx, product.Filter{}, page.Params{Page: 1, Size: 1})
		if err != nil {
			return errors.Wrap(err, "count products")
		}
		if total > 0 {
			lg.Info("Catalog already seeded, skipping", zap.Int("products", total))
			return nil
		}
	}

	return seed(ctx, lg, product.NewService(repo), entries)
}

// seed creates every entry and applies its discount, if any.
func seed(ctx context.Context, lg *zap.Logger, svc *product.Service, entries []catalogEntry) error {
	for i, e := range entries {
		p, err := svc.Create(ctx, product.CreateRequest{Name: e.Name, Price: e.Price})
		if err != nil {
			return errors.Wrapf(err, "create product %d (%q)", i, e.Name)
		}

		if e.DiscountPercentage != nil {
			req := product.DiscountRequest{Percentage: *e.DiscountPercentage}
			if e.DiscountQuantityThreshold != nil {
				req.QuantityThreshold = *e.DiscountQuantityThreshold
			}
			if p, err = svc.SetDiscount(ctx, p.ID, req); err != nil {
				return errors.Wrapf(err, "set discount on product %d (%q)", i, e.Name)
			}
		}

		lg.Debug("Product created", zap.Int64("id", p.ID), zap.String("name", p.Name))
	}
	return nil
}

func readCatalog(path string) ([]catalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	return decodeCatalog(f, strings.HasSuffix(path, ".gz"))
}

func decodeCatalog(r io.Reader, gzipped bool) ([]catalogEntry, error) {
	if gzipped {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var entries []catalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return entries, nil
}
