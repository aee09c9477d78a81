// Package httplog provides canonical request logging middleware.
//
// Each request gets a canonlog context; fields accumulate during handling and
// flush as a single line when the response is written. Downstream code can add
// fields or errors to the same line via the canonlog package:
//
//	r := chi.NewRouter()
//	r.Use(httplog.New())
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    canonlog.InfoAdd(r.Context(), "app_id", appID)
//	    ...
//	}
//
// Panics are recovered, logged, and answered with a 500 error envelope.
package httplog

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nhalm/canonlog"

	"github.com/phildass/iiskills-cloud-sub007/apierror"
)

type config struct {
	fields func(*http.Request) map[string]any
}

// Option configures the logging middleware.
type Option func(*config)

// WithFields adds custom fields to each request's log line.
// The function runs at request start, before the handler executes.
func WithFields(fn func(*http.Request) map[string]any) Option {
	return func(c *config) {
		c.fields = fn
	}
}

// New returns middleware that emits one canonical log line per request with
// method, path, route pattern, status, and duration_ms.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := canonlog.NewContext(r.Context())
			start := time.Now()

			canonlog.InfoAddMany(ctx, map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			if cfg.fields != nil {
				canonlog.InfoAddMany(ctx, cfg.fields(r))
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)

			defer func() {
				if rec := recover(); rec != nil {
					canonlog.ErrorAdd(ctx, fmt.Errorf("panic: %v", rec))
					if ww.Status() == 0 {
						apierror.Write(ww, apierror.ErrInternal)
					}
				}

				route := r.URL.Path
				if rctx := chi.RouteContext(ctx); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						route = pattern
					}
				}

				canonlog.InfoAddMany(ctx, map[string]any{
					"route":       route,
					"status":      ww.Status(),
					"duration_ms": time.Since(start).Milliseconds(),
				})
				canonlog.Flush(ctx)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
