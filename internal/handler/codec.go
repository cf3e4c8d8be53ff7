package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/page"
	"github.com/xenking/order-management/internal/domain/pricing"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/report"
)

const maxBodyBytes = 1 << 20

// errMalformedBody marks a request body that is not the expected JSON.
var errMalformedBody = errors.New("malformed JSON body")

// readBody reads the request body and returns a decoder over it.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, malformed(err)
	}
	return jx.DecodeBytes(data), nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", errMalformedBody, err)
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return decimal.Zero, d.Null()
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(strings.Trim(n.String(), `"`))
}

func decodeOptString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeCreateOrder(d *jx.Decoder) (order.CreateRequest, error) {
	var req order.CreateRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() == jx.Null {
				req.Items = nil
				return d.Null()
			}
			req.Items = []*order.Item{}
			return d.Arr(func(d *jx.Decoder) error {
				if d.Next() == jx.Null {
					req.Items = append(req.Items, nil)
					return d.Null()
				}
				item, err := decodeOrderItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, &item)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.CreateRequest{}, malformed(err)
	}
	return req, nil
}

func decodeOrderItem(d *jx.Decoder) (order.Item, error) {
	var item order.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			item.ProductID, err = d.Int64()
		case "quantity":
			item.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return item, err
}

func decodeCreateProduct(d *jx.Decoder) (product.CreateRequest, error) {
	var req product.CreateRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			req.Name, err = decodeOptString(d)
		case "price":
			req.Price, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return product.CreateRequest{}, malformed(err)
	}
	return req, nil
}

func decodeDiscount(d *jx.Decoder) (product.DiscountRequest, error) {
	var req product.DiscountRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "percentage":
			req.Percentage, err = decodeDecimal(d)
		case "quantityThreshold":
			if d.Next() == jx.Null {
				return d.Null()
			}
			req.QuantityThreshold, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return product.DiscountRequest{}, malformed(err)
	}
	return req, nil
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("discountPercentage", func(e *jx.Encoder) {
			if p.Discount == nil {
				e.Null()
				return
			}
			encodeDecimal(e, p.Discount.Percentage)
		})
		e.Field("discountQuantityThreshold", func(e *jx.Encoder) {
			if p.Discount == nil {
				e.Null()
				return
			}
			e.Int(p.Discount.QuantityThreshold)
		})
	})
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, item := range o.Items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("productId", func(e *jx.Encoder) { e.Int64(item.ProductID) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
				})
			}
			e.ArrEnd()
		})
	})
}

func encodePage[T any](e *jx.Encoder, res page.Result[T], item func(*jx.Encoder, T)) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, v := range res.Items {
				item(e, v)
			}
			e.ArrEnd()
		})
		e.Field("totalCount", func(e *jx.Encoder) { e.Int(res.TotalCount) })
		e.Field("page", func(e *jx.Encoder) { e.Int(res.Page) })
		e.Field("pageSize", func(e *jx.Encoder) { e.Int(res.PageSize) })
	})
}

func encodeInvoice(e *jx.Encoder, inv *order.Invoice) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(inv.OrderID) })
		e.Field("products", func(e *jx.Encoder) {
			e.ArrStart()
			for _, l := range inv.Lines {
				encodeInvoiceLine(e, l)
			}
			e.ArrEnd()
		})
		e.Field("totalAmount", func(e *jx.Encoder) { encodeDecimal(e, inv.Total) })
	})
}

func encodeInvoiceLine(e *jx.Encoder, l pricing.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productName", func(e *jx.Encoder) { e.Str(l.ProductName) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("discountPercent", func(e *jx.Encoder) { encodeDecimal(e, l.DiscountPercent) })
		e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, l.Amount) })
	})
}

func encodeReport(e *jx.Encoder, rows []report.Row) {
	e.ArrStart()
	for _, row := range rows {
		e.Obj(func(e *jx.Encoder) {
			e.Field("productName", func(e *jx.Encoder) { e.Str(row.ProductName) })
			e.Field("discountPercent", func(e *jx.Encoder) { encodeDecimal(e, row.DiscountPercent) })
			e.Field("numberOfOrders", func(e *jx.Encoder) { e.Int(row.NumberOfOrders) })
			e.Field("totalAmount", func(e *jx.Encoder) { encodeDecimal(e, row.TotalAmount) })
		})
	}
	e.ArrEnd()
}
