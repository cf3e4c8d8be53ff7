// Package report aggregates historical order lines into the discount
// utilization report.
package report

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/pricing"
	"github.com/xenking/order-management/internal/domain/product"
)

// Row summarizes how often a product's bulk discount was earned.
type Row struct {
	ProductID       int64
	ProductName     string
	DiscountPercent decimal.Decimal
	NumberOfOrders  int
	TotalAmount     decimal.Decimal
}

// Build aggregates lines per discounted product. A line qualifies when its
// quantity reaches the product's current threshold; amounts use the current
// percentage. Products without a discount or without qualifying lines are
// omitted. Rows are ordered by product id.
func Build(products []product.Product, lines []order.LineRecord) []Row {
	type acc struct {
		orders map[int64]struct{}
		total  decimal.Decimal
	}

	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		if p.Discount == nil || !p.Discount.Percentage.IsPositive() || p.Discount.QuantityThreshold < 1 {
			continue
		}
		byID[p.ID] = p
	}

	accs := make(map[int64]*acc, len(byID))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.Discount.Applies(l.Quantity) {
			continue
		}
		a, ok := accs[l.ProductID]
		if !ok {
			a = &acc{orders: make(map[int64]struct{}), total: decimal.Zero}
			accs[l.ProductID] = a
		}
		a.orders[l.OrderID] = struct{}{}
		_, amount := pricing.LineAmount(p, l.Quantity)
		a.total = a.total.Add(amount)
	}

	rows := make([]Row, 0, len(accs))
	for id, a := range accs {
		p := byID[id]
		rows = append(rows, Row{
			ProductID:       id,
			ProductName:     p.Name,
			DiscountPercent: p.Discount.Percentage,
			NumberOfOrders:  len(a.orders),
			TotalAmount:     a.total,
		})
	}
	slices.SortFunc(rows, func(a, b Row) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	return rows
}
