package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/ogen-go/ogen/validate"
	"go.uber.org/zap"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/product"
)

// writeJSON encodes the body produced by f and writes it with status.
func writeJSON(w http.ResponseWriter, status int, f func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	f(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string, fields []validate.FieldError) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if len(fields) == 0 {
				return
			}
			e.Field("fields", func(e *jx.Encoder) {
				e.ArrStart()
				for _, f := range fields {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(f.Name) })
						e.Field("error", func(e *jx.Encoder) { e.Str(f.Error.Error()) })
					})
				}
				e.ArrEnd()
			})
		})
	})
}

// handleError maps domain errors to HTTP responses. Anything unrecognized is
// logged and reported as 500 without details.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *validate.Error
		pnfErr *order.ProductNotFoundError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
	case errors.Is(err, errMalformedBody):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &pnfErr):
		writeError(w, http.StatusNotFound, pnfErr.Error(), nil)
	case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
