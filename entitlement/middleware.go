package entitlement

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phildass/iiskills-cloud-sub007/apierror"
)

const userKey contextKey = "session_user"

// ContextWithUser stores the session user in the context. The session
// middleware calls this; handlers and RequireAccess read it back.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the session user. ok is false for anonymous
// requests.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok && user != nil
}

type accessConfig struct {
	appParam string
	userFn   func(*http.Request) *User
}

// AccessOption configures the RequireAccess middleware.
type AccessOption func(*accessConfig)

// AccessAppParam sets the chi URL parameter carrying the app id
// (default "appID").
func AccessAppParam(name string) AccessOption {
	return func(c *accessConfig) {
		c.appParam = name
	}
}

// AccessUserFunc replaces how the session user is obtained
// (default UserFromContext).
func AccessUserFunc(fn func(*http.Request) *User) AccessOption {
	return func(c *accessConfig) {
		c.userFn = fn
	}
}

// RequireAccess returns middleware gating app content behind the resolver's
// decision. Free apps and entitled users pass through; otherwise the reason
// picks the response so clients can route the user correctly:
// unauthenticated 401 (login), no active grant 402 (purchase), unknown app
// 404, lookup failure 503 (retry).
func RequireAccess(resolver *Resolver, opts ...AccessOption) func(http.Handler) http.Handler {
	cfg := &accessConfig{
		appParam: "appID",
		userFn: func(r *http.Request) *User {
			user, _ := UserFromContext(r.Context())
			return user
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			appID := chi.URLParam(r, cfg.appParam)

			status, err := resolver.Resolve(r.Context(), cfg.userFn(r), appID)
			if err != nil {
				apierror.Write(w, apierror.ErrUnknownApp.WithParam("Unknown app", cfg.appParam))
				return
			}
			if status.HasAccess {
				next.ServeHTTP(w, r)
				return
			}

			switch status.Reason {
			case ReasonUnauthenticated:
				apierror.Write(w, apierror.ErrUnauthenticated)
			case ReasonLookupFailed:
				apierror.Write(w, apierror.ErrLookupFailed)
			default:
				apierror.Write(w, apierror.ErrNoActiveGrant.With(status.Message))
			}
		})
	}
}
