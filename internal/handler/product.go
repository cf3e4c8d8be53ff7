package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/order-management/internal/domain/product"
)

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	req, err := decodeCreateProduct(d)
	if err != nil {
		handleError(w, r, err)
		return
	}

	p, err := h.products.Create(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeProduct(e, *p) })
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	res, err := h.products.List(r.Context(), product.ListRequest{
		Name: r.URL.Query().Get("name"),
		Page: p,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePage(e, res, encodeProduct) })
}

// SetDiscount handles PUT /api/products/{id}/discount.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	d, err := readBody(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	req, err := decodeDiscount(d)
	if err != nil {
		handleError(w, r, err)
		return
	}

	p, err := h.products.SetDiscount(r.Context(), id, req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p) })
}
