// Package handler exposes the catalog, order and report operations over
// HTTP with JSON bodies.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/page"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/report"
)

var errNotInteger = errors.New("must be an integer")

// Handler serves the /api routes, delegating business logic to the domain
// services.
type Handler struct {
	products *product.Service
	orders   *order.Service
	reports  *report.Service
	metrics  *metrics
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products *product.Service,
	orders *order.Service,
	reports *report.Service,
	mp metric.MeterProvider,
) (*Handler, error) {
	m, err := newMetrics(mp)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}
	return &Handler{
		products: products,
		orders:   orders,
		reports:  reports,
		metrics:  m,
	}, nil
}

// Routes registers the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Put("/{id}/discount", h.SetDiscount)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{id}/invoice", h.GetInvoice)
		})
		r.Get("/reports/discounted-products", h.DiscountedProductsReport)
	})
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &validate.Error{Fields: []validate.FieldError{
			{Name: "id", Error: errNotInteger},
		}}
	}
	return id, nil
}

// pageParams reads page and pageSize from the query string, falling back to
// the defaults for absent values.
func pageParams(r *http.Request) (page.Params, error) {
	p := page.Default()
	q := r.URL.Query()

	var failures []validate.FieldError
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{name: "page", dst: &p.Page},
		{name: "pageSize", dst: &p.Size},
	} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			failures = append(failures, validate.FieldError{Name: f.name, Error: errNotInteger})
			continue
		}
		*f.dst = v
	}
	if len(failures) > 0 {
		return page.Params{}, &validate.Error{Fields: failures}
	}
	return p, nil
}
