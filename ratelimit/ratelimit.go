// Package ratelimit bounds the request rate per client IP on the platform's
// sensitive route groups (auth, payment, admin).
//
// The middleware classifies each request path into a route group, charges the
// group's fixed-window budget for the client IP, and rejects with 429 once the
// budget is spent. Paths outside the three groups pass through untouched.
// Admin routes can additionally be gated by an IP allowlist, enforced before
// any counting.
//
//	st := store.NewMemory()
//	defer st.Close()
//	limiter := ratelimit.New(st, ratelimit.ConfigFromEnv())
//	r.Use(limiter.Handler)
//
// The algorithm is a fixed window, not a sliding log: counts reset wholesale
// when a window expires, so a client can burst up to 2x the budget across a
// window boundary. A request that lands exactly on the budget is still
// allowed; the next one is the first rejected.
//
// With the default in-memory store, counters are per process. N replicas
// enforce N times the configured budget; use the Redis store when budgets
// must hold across replicas.
package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nhalm/canonlog"

	"github.com/phildass/iiskills-cloud-sub007/apierror"
	"github.com/phildass/iiskills-cloud-sub007/ratelimit/store"
)

// Decision is the outcome of charging one request against a budget.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// Limiter is the rate limiting middleware for the sensitive route groups.
type Limiter struct {
	store    store.Store
	cfg      Config
	clientIP func(*http.Request) string
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClientIP replaces the client address extractor (default ClientIP).
func WithClientIP(fn func(*http.Request) string) Option {
	return func(l *Limiter) {
		l.clientIP = fn
	}
}

// New creates a Limiter backed by the given store and budgets.
func New(st store.Store, cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		store:    st,
		cfg:      cfg,
		clientIP: ClientIP,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check charges one request for ip against group's budget and reports the
// decision. The count lands exactly on the budget maximum on the last allowed
// request; the first count past it is rejected.
func (l *Limiter) Check(ctx context.Context, group RouteGroup, ip string) (Decision, error) {
	budget := l.cfg.BudgetFor(group)

	count, ttl, err := l.store.Increment(ctx, string(group)+":"+ip, budget.Window)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:   count <= int64(budget.Max),
		Remaining: max(0, int64(budget.Max)-count),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

type limitExceededBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// Handler returns the middleware.
//
// Allowed requests carry X-RateLimit-Remaining and X-RateLimit-Reset.
// Rejected requests get 429 with Retry-After, X-RateLimit-Limit,
// X-RateLimit-Remaining, X-RateLimit-Reset, and the body
// {"error":"Too Many Requests","retryAfter":<seconds>}.
// Admin requests from outside a configured allowlist get a hard 403 before
// any budget is charged.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		group, ok := Classify(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := l.clientIP(r)

		if group == GroupAdmin && !l.adminAllowed(ip) {
			canonlog.InfoAddMany(ctx, map[string]any{
				"admin_ip_denied": true,
				"client_ip":       ip,
			})
			apierror.Write(w, apierror.ErrAdminIPDenied)
			return
		}

		decision, err := l.Check(ctx, group, ip)
		if err != nil {
			canonlog.ErrorAdd(ctx, err)
			apierror.Write(w, apierror.ErrInternal.With("Rate limit check failed"))
			return
		}

		budget := l.cfg.BudgetFor(group)
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := retrySeconds(decision.ResetAt)
			canonlog.InfoAddMany(ctx, map[string]any{
				"rate_limited": true,
				"route_group":  string(group),
				"client_ip":    ip,
			})

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(budget.Max))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(limitExceededBody{
				Error:      "Too Many Requests",
				RetryAfter: retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// adminAllowed reports whether ip may reach admin routes. An empty allowlist
// admits everyone; the rate-limit budget still applies.
func (l *Limiter) adminAllowed(ip string) bool {
	if len(l.cfg.AdminAllowlist) == 0 {
		return true
	}
	for _, allowed := range l.cfg.AdminAllowlist {
		if allowed == ip {
			return true
		}
	}
	return false
}

// retrySeconds rounds up so a client never retries before the window resets.
func retrySeconds(resetAt time.Time) int {
	secs := int((time.Until(resetAt) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
