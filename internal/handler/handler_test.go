package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/page"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/report"
)

// --- In-memory store ---

type memStore struct {
	mu       sync.Mutex
	products []product.Product
	orders   []order.Order
	fail     error
}

type memProducts struct{ *memStore }

type memOrders struct{ *memStore }

func (s memProducts) Create(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.products) + 1)
	s.products = append(s.products, *p)
	return nil
}

func (s memProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (s memProducts) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []product.Product
	for _, p := range s.products {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s memProducts) List(_ context.Context, f product.Filter, p page.Params) ([]product.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []product.Product
	for _, pr := range s.products {
		if strings.Contains(strings.ToLower(pr.Name), strings.ToLower(f.Name)) {
			matched = append(matched, pr)
		}
	}
	return window(matched, p), len(matched), nil
}

func (s memProducts) SetDiscount(_ context.Context, id int64, d *product.Discount) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].Discount = d
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (s memProducts) ListDiscounted(_ context.Context) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []product.Product
	for _, p := range s.products {
		if p.Discount != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s memOrders) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = int64(len(s.orders) + 1)
	s.orders = append(s.orders, *o)
	return nil
}

func (s memOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (s memOrders) List(_ context.Context, p page.Params) ([]order.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return window(s.orders, p), len(s.orders), nil
}

func (s memOrders) DiscountedLines(_ context.Context) ([]order.LineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.LineRecord
	for _, o := range s.orders {
		for _, item := range o.Items {
			out = append(out, order.LineRecord{OrderID: o.ID, ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}
	return out, nil
}

func window[T any](all []T, p page.Params) []T {
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit(), len(all))
	return slices.Clone(all[start:end])
}

// --- Helpers ---

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()

	store := &memStore{}
	products := memProducts{store}
	orders := memOrders{store}

	h, err := NewHandler(
		product.NewService(products),
		order.NewService(products, orders),
		report.NewService(products, orders),
		noop.NewMeterProvider(),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Fields  []struct {
		Name  string `json:"name"`
		Error string `json:"error"`
	} `json:"fields"`
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		require.NoError(t, dec.Decode(out))
	}
	return resp.StatusCode
}

type productBody struct {
	ID                        int64        `json:"id"`
	Name                      string       `json:"name"`
	Price                     json.Number  `json:"price"`
	DiscountPercentage        *json.Number `json:"discountPercentage"`
	DiscountQuantityThreshold *int         `json:"discountQuantityThreshold"`
}

func createProduct(t *testing.T, srv *httptest.Server, name, price string) productBody {
	t.Helper()
	var p productBody
	status := do(t, srv, http.MethodPost, "/api/products", `{"name":"`+name+`","price":`+price+`}`, &p)
	require.Equal(t, http.StatusCreated, status)
	return p
}

func fieldNames(e errorBody) []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// --- Tests ---

func TestCreateProduct(t *testing.T) {
	srv, _ := newTestServer(t)

	p := createProduct(t, srv, "Widget", "19.99")
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, json.Number("19.99"), p.Price)
	assert.Nil(t, p.DiscountPercentage)
	assert.Nil(t, p.DiscountQuantityThreshold)

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{name: "blank name", body: `{"name":"   ","price":1}`, wantFields: []string{"name"}},
		{name: "zero price", body: `{"name":"A","price":0}`, wantFields: []string{"price"}},
		{name: "negative price", body: `{"name":"A","price":-5}`, wantFields: []string{"price"}},
		{name: "both", body: `{"price":-1}`, wantFields: []string{"name", "price"}},
		{name: "price past scale", body: `{"name":"A","price":1.23456}`, wantFields: []string{"price"}},
		{name: "price rounding to zero", body: `{"name":"A","price":0.00001}`, wantFields: []string{"price"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorBody
			status := do(t, srv, http.MethodPost, "/api/products", tt.body, &e)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, 400, e.Code)
			assert.Equal(t, tt.wantFields, fieldNames(e))
		})
	}

	t.Run("malformed JSON", func(t *testing.T) {
		var e errorBody
		status := do(t, srv, http.MethodPost, "/api/products", `{"name":`, &e)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, e.Message, "malformed JSON body")
	})
}

func TestListProducts_NameFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	createProduct(t, srv, "Apple", "1.00")
	createProduct(t, srv, "Banana", "2.00")
	createProduct(t, srv, "Green Apple", "1.50")
	createProduct(t, srv, "Pineapple", "3.00")

	for _, q := range []string{"Apple", "apple", "APPLE"} {
		t.Run(q, func(t *testing.T) {
			var res struct {
				Items      []productBody `json:"items"`
				TotalCount int           `json:"totalCount"`
				Page       int           `json:"page"`
				PageSize   int           `json:"pageSize"`
			}
			status := do(t, srv, http.MethodGet, "/api/products?name="+q, "", &res)
			require.Equal(t, http.StatusOK, status)

			names := make([]string, len(res.Items))
			for i, p := range res.Items {
				names[i] = p.Name
			}
			assert.Equal(t, []string{"Apple", "Green Apple", "Pineapple"}, names)
			assert.Equal(t, 3, res.TotalCount)
			assert.Equal(t, 1, res.Page)
			assert.Equal(t, 10, res.PageSize)
		})
	}
}

func TestListProducts_Paging(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		createProduct(t, srv, name, "1")
	}

	type result struct {
		Items      []productBody `json:"items"`
		TotalCount int           `json:"totalCount"`
	}
	var first, second result
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/products?page=1&pageSize=2", "", &first))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/products?page=2&pageSize=2", "", &second))

	assert.Equal(t, 5, first.TotalCount)
	assert.Equal(t, 5, second.TotalCount)
	require.Len(t, first.Items, 2)
	require.Len(t, second.Items, 2)
	assert.Equal(t, []int64{1, 2}, []int64{first.Items[0].ID, first.Items[1].ID})
	assert.Equal(t, []int64{3, 4}, []int64{second.Items[0].ID, second.Items[1].ID})

	for _, q := range []string{"page=0", "pageSize=0", "pageSize=101", "page=abc", "pageSize=1.5"} {
		t.Run(q, func(t *testing.T) {
			var e errorBody
			status := do(t, srv, http.MethodGet, "/api/products?"+q, "", &e)
			assert.Equal(t, http.StatusBadRequest, status)
			require.Len(t, e.Fields, 1)
			assert.Equal(t, strings.SplitN(q, "=", 2)[0], e.Fields[0].Name)
		})
	}
}

func TestSetDiscount(t *testing.T) {
	srv, _ := newTestServer(t)
	p := createProduct(t, srv, "Crate", "100")

	var updated productBody
	status := do(t, srv, http.MethodPut, "/api/products/1/discount", `{"percentage":15,"quantityThreshold":10}`, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, p.ID, updated.ID)
	require.NotNil(t, updated.DiscountPercentage)
	assert.Equal(t, json.Number("15"), *updated.DiscountPercentage)
	require.NotNil(t, updated.DiscountQuantityThreshold)
	assert.Equal(t, 10, *updated.DiscountQuantityThreshold)

	for _, body := range []string{
		`{"percentage":-1,"quantityThreshold":10}`,
		`{"percentage":101,"quantityThreshold":10}`,
		`{"percentage":10,"quantityThreshold":0}`,
		`{"percentage":10,"quantityThreshold":-5}`,
	} {
		t.Run(body, func(t *testing.T) {
			var e errorBody
			assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPut, "/api/products/1/discount", body, &e))
			assert.NotEmpty(t, e.Fields)
		})
	}

	t.Run("unknown product", func(t *testing.T) {
		var e errorBody
		status := do(t, srv, http.MethodPut, "/api/products/999/discount", `{"percentage":10,"quantityThreshold":1}`, &e)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, 404, e.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		var e errorBody
		status := do(t, srv, http.MethodPut, "/api/products/abc/discount", `{"percentage":10,"quantityThreshold":1}`, &e)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, []string{"id"}, fieldNames(e))
	})

	t.Run("clear", func(t *testing.T) {
		var cleared productBody
		status := do(t, srv, http.MethodPut, "/api/products/1/discount", `{"percentage":0,"quantityThreshold":0}`, &cleared)
		require.Equal(t, http.StatusOK, status)
		assert.Nil(t, cleared.DiscountPercentage)
		assert.Nil(t, cleared.DiscountQuantityThreshold)
	})
}

type orderBody struct {
	ID    int64 `json:"id"`
	Items []struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	} `json:"items"`
}

type invoiceBody struct {
	OrderID  int64 `json:"orderId"`
	Products []struct {
		ProductName     string      `json:"productName"`
		Quantity        int         `json:"quantity"`
		DiscountPercent json.Number `json:"discountPercent"`
		Amount          json.Number `json:"amount"`
	} `json:"products"`
	TotalAmount json.Number `json:"totalAmount"`
}

type reportRow struct {
	ProductName     string      `json:"productName"`
	DiscountPercent json.Number `json:"discountPercent"`
	NumberOfOrders  int         `json:"numberOfOrders"`
	TotalAmount     json.Number `json:"totalAmount"`
}

func TestCreateOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	createProduct(t, srv, "Widget", "2.50")

	var o orderBody
	status := do(t, srv, http.MethodPost, "/api/orders", `{"items":[{"productId":1,"quantity":3}],"note":"ignored"}`, &o)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(1), o.ID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(1), o.Items[0].ProductID)
	assert.Equal(t, 3, o.Items[0].Quantity)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{name: "empty items", body: `{"items":[]}`, wantStatus: http.StatusBadRequest, wantFields: []string{"items"}},
		{name: "missing items", body: `{}`, wantStatus: http.StatusBadRequest, wantFields: []string{"items"}},
		{name: "null items", body: `{"items":null}`, wantStatus: http.StatusBadRequest, wantFields: []string{"items"}},
		{
			name:       "invalid items",
			body:       `{"items":[null,{"quantity":1},{"productId":1,"quantity":0}]}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"items[0]", "items[1].productId", "items[2].quantity"},
		},
		{
			name:       "quantity over int32",
			body:       `{"items":[{"productId":1,"quantity":4294967297}]}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"items[0].quantity"},
		},
		{name: "unknown product", body: `{"items":[{"productId":99999,"quantity":1}]}`, wantStatus: http.StatusNotFound},
		{name: "malformed", body: `{"items":[{"productId":"x"}]}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorBody
			status := do(t, srv, http.MethodPost, "/api/orders", tt.body, &e)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, e.Code)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, fieldNames(e))
			}
		})
	}
}

func TestInvoiceAndReport(t *testing.T) {
	srv, _ := newTestServer(t)
	createProduct(t, srv, "Crate", "100")
	createProduct(t, srv, "Widget", "1")
	require.Equal(t, http.StatusOK,
		do(t, srv, http.MethodPut, "/api/products/1/discount", `{"percentage":15,"quantityThreshold":10}`, nil))

	var at, below orderBody
	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/api/orders", `{"items":[{"productId":1,"quantity":10},{"productId":2,"quantity":4}]}`, &at))
	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/api/orders", `{"items":[{"productId":1,"quantity":9}]}`, &below))

	var inv invoiceBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/orders/1/invoice", "", &inv))
	assert.Equal(t, int64(1), inv.OrderID)
	require.Len(t, inv.Products, 2)
	assert.Equal(t, "Crate", inv.Products[0].ProductName)
	assert.Equal(t, json.Number("15"), inv.Products[0].DiscountPercent)
	assert.Equal(t, json.Number("850"), inv.Products[0].Amount)
	assert.Equal(t, json.Number("0"), inv.Products[1].DiscountPercent)
	assert.Equal(t, json.Number("4"), inv.Products[1].Amount)
	assert.Equal(t, json.Number("854"), inv.TotalAmount)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/orders/2/invoice", "", &inv))
	assert.Equal(t, json.Number("0"), inv.Products[0].DiscountPercent)
	assert.Equal(t, json.Number("900"), inv.Products[0].Amount)

	var rows []reportRow
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/reports/discounted-products", "", &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Crate", rows[0].ProductName)
	assert.Equal(t, json.Number("15"), rows[0].DiscountPercent)
	assert.Equal(t, 1, rows[0].NumberOfOrders)
	assert.Equal(t, json.Number("850"), rows[0].TotalAmount)

	// Clearing the discount removes it from invoices and the report.
	require.Equal(t, http.StatusOK,
		do(t, srv, http.MethodPut, "/api/products/1/discount", `{"percentage":0,"quantityThreshold":0}`, nil))

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/orders/1/invoice", "", &inv))
	assert.Equal(t, json.Number("0"), inv.Products[0].DiscountPercent)
	assert.Equal(t, json.Number("1000"), inv.Products[0].Amount)

	rows = nil
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/reports/discounted-products", "", &rows))
	assert.Empty(t, rows)

	t.Run("unknown order", func(t *testing.T) {
		var e errorBody
		assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/orders/404/invoice", "", &e))
	})
	t.Run("non-numeric id", func(t *testing.T) {
		var e errorBody
		assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/orders/abc/invoice", "", &e))
	})
}

func TestListOrders(t *testing.T) {
	srv, _ := newTestServer(t)
	createProduct(t, srv, "Widget", "1")
	for range 3 {
		require.Equal(t, http.StatusCreated,
			do(t, srv, http.MethodPost, "/api/orders", `{"items":[{"productId":1,"quantity":2}]}`, nil))
	}

	var res struct {
		Items      []orderBody `json:"items"`
		TotalCount int         `json:"totalCount"`
		Page       int         `json:"page"`
		PageSize   int         `json:"pageSize"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/orders?page=2&pageSize=2", "", &res))
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.PageSize)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(3), res.Items[0].ID)
	require.Len(t, res.Items[0].Items, 1)

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/orders?pageSize=500", "", &e))
}

func TestUnhandledErrorIs500(t *testing.T) {
	srv, store := newTestServer(t)
	store.fail = errors.New("connection reset")

	var e errorBody
	status := do(t, srv, http.MethodGet, "/api/reports/discounted-products", "", &e)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", e.Message)
	assert.NotContains(t, e.Message, "connection reset")
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	var e errorBody
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/nope", "", &e))
	assert.Equal(t, 404, e.Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodDelete, "/api/products", "", &e))
	assert.Equal(t, 405, e.Code)
}
