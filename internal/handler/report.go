package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// DiscountedProductsReport handles GET /api/reports/discounted-products.
func (h *Handler) DiscountedProductsReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.DiscountedProducts(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeReport(e, rows) })
}
