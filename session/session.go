// Package session resolves the bearer token on inbound requests to a user
// record via a host-supplied lookup (Supabase session check, JWT validation,
// etc.) and stores it in the request context for the entitlement middleware.
package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/nhalm/canonlog"

	"github.com/phildass/iiskills-cloud-sub007/apierror"
	"github.com/phildass/iiskills-cloud-sub007/entitlement"
)

// Lookup resolves a bearer token to a user. Return (nil, nil) for a token
// that is well-formed but no longer valid (expired or revoked session); an
// error means the session backend itself failed.
type Lookup func(ctx context.Context, token string) (*entitlement.User, error)

type config struct {
	optional bool
}

// Option configures the session middleware.
type Option func(*config)

// Optional admits requests without a bearer token as anonymous instead of
// rejecting them. Use on routes that serve free content to anonymous users.
func Optional() Option {
	return func(c *config) {
		c.optional = true
	}
}

// Middleware returns middleware that authenticates the request's bearer
// token and stores the resulting user in context.
//
// Missing or malformed tokens get 401 unless Optional is set, in which case
// the request proceeds anonymously. A lookup failure gets 503, not an
// anonymous pass: an unverifiable session must not quietly downgrade to
// anonymous on routes that would then deny a paying customer.
func Middleware(lookup Lookup, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				if cfg.optional {
					next.ServeHTTP(w, r)
					return
				}
				apierror.Write(w, apierror.ErrUnauthenticated)
				return
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				apierror.Write(w, apierror.ErrUnauthenticated.With("Invalid authorization format"))
				return
			}
			token := strings.TrimPrefix(auth, prefix)
			if token == "" {
				apierror.Write(w, apierror.ErrUnauthenticated.With("Empty bearer token"))
				return
			}

			user, err := lookup(r.Context(), token)
			if err != nil {
				canonlog.ErrorAdd(r.Context(), err)
				apierror.Write(w, apierror.ErrLookupFailed.With("Session check unavailable, try again"))
				return
			}
			if user == nil {
				apierror.Write(w, apierror.ErrUnauthenticated.With("Session expired or invalid"))
				return
			}

			ctx := entitlement.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
