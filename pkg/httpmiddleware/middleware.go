// Package httpmiddleware provides net/http middleware for logging, tracing,
// request identification and panic recovery.
package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h so that the first middleware is outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Chain converts middlewares to the form accepted by chi.Router.Use.
func Chain(middlewares ...Middleware) []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, len(middlewares))
	for i, m := range middlewares {
		out[i] = m
	}
	return out
}

// RoutePattern returns the chi route pattern matched by r, or the raw path
// when r was not routed by chi. It is only complete after routing, so
// middleware must call it after the next handler returns.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
