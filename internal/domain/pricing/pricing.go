// Package pricing computes line amounts and invoices for orders, applying
// the bulk-quantity discount configured on each product.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

// Item is a product/quantity pair to be priced.
type Item struct {
	ProductID int64
	Quantity  int
}

// Line is one priced row of an invoice.
type Line struct {
	ProductID       int64
	ProductName     string
	Quantity        int
	DiscountPercent decimal.Decimal
	Amount          decimal.Decimal
}

// Invoice is the priced breakdown of an order.
type Invoice struct {
	Lines []Line
	Total decimal.Decimal
}

// LineAmount returns the discount percentage applied to qty units of p and
// the resulting amount: price * qty * (1 - discount/100).
func LineAmount(p product.Product, qty int) (discountPercent, amount decimal.Decimal) {
	discountPercent = decimal.Zero
	if p.Discount.Applies(qty) {
		discountPercent = p.Discount.Percentage
	}

	// Shift(-2) divides by 100 without rounding.
	gross := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	return discountPercent, gross.Mul(hundred.Sub(discountPercent)).Shift(-2)
}

// ComputeInvoice prices items in order. Every item must reference a product
// present in products.
func ComputeInvoice(items []Item, products map[int64]product.Product) Invoice {
	inv := Invoice{
		Lines: make([]Line, 0, len(items)),
		Total: decimal.Zero,
	}
	for _, item := range items {
		p := products[item.ProductID]
		discount, amount := LineAmount(p, item.Quantity)
		inv.Lines = append(inv.Lines, Line{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        item.Quantity,
			DiscountPercent: discount,
			Amount:          amount,
		})
		inv.Total = inv.Total.Add(amount)
	}
	return inv
}
