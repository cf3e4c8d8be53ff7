package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	req, err := decodeCreateOrder(d)
	if err != nil {
		handleError(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.metrics.ordersCreated.Add(r.Context(), 1)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	res, err := h.orders.List(r.Context(), p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePage(e, res, encodeOrder) })
}

// GetInvoice handles GET /api/orders/{id}/invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	inv, err := h.orders.Invoice(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.metrics.invoicesComputed.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeInvoice(e, inv) })
}
