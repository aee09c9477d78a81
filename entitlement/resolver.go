package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/nhalm/canonlog"
)

// User is the session identity supplied by the host application's
// user/session provider. A nil *User means anonymous.
type User struct {
	ID      string
	Email   string
	IsAdmin bool
}

// Access decision reasons. Clients route on these: unauthenticated sends the
// user to login, no_active_grant to purchase.
const (
	ReasonFreeApp         = "free_app"
	ReasonUnauthenticated = "unauthenticated"
	ReasonDirectGrant     = "direct_grant"
	ReasonBundleGrant     = "bundle_grant"
	ReasonNoActiveGrant   = "no_active_grant"
	ReasonLookupFailed    = "lookup_failed"
)

// AccessStatus is the outcome of one access decision. It is computed, never
// persisted.
type AccessStatus struct {
	HasAccess  bool        `json:"hasAccess"`
	Reason     string      `json:"reason"`
	GrantedVia GrantSource `json:"grantedVia,omitempty"`
	Message    string      `json:"message"`
}

const defaultLookupTimeout = 3 * time.Second

// Resolver produces access decisions from the static catalog and the external
// grants store.
type Resolver struct {
	registry      *Registry
	grants        GrantStore
	lookupTimeout time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLookupTimeout bounds each grants-store lookup. A lookup that exceeds it
// counts as failed and the decision is deny.
func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.lookupTimeout = d
	}
}

// NewResolver creates a Resolver.
func NewResolver(registry *Registry, grants GrantStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry:      registry,
		grants:        grants,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the catalog the resolver decides against.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve decides whether user may access the app, in order: unknown app is
// an error; free apps are open to everyone, anonymous included, with no
// grants lookup; anonymous users are denied; an active direct grant allows;
// an active grant on any bundle sibling allows via bundle propagation;
// otherwise deny.
//
// A grants-store error or timeout yields a deny with reason lookup_failed,
// logged for the operator. The error return is non-nil only for unknown app
// ids, and the status is a deny in that case too — there is no path on which
// a failure reads as access.
func (r *Resolver) Resolve(ctx context.Context, user *User, appID string) (AccessStatus, error) {
	app, err := r.registry.App(appID)
	if err != nil {
		canonlog.ErrorAdd(ctx, err)
		return AccessStatus{
			Reason:  "unknown_app",
			Message: fmt.Sprintf("App %q is not in the catalog", appID),
		}, err
	}

	if app.Type == AppFree {
		return AccessStatus{
			HasAccess: true,
			Reason:    ReasonFreeApp,
			Message:   "Free app, open to everyone",
		}, nil
	}

	if user == nil || user.ID == "" {
		return AccessStatus{
			Reason:  ReasonUnauthenticated,
			Message: "Sign in to access this app",
		}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	grant, err := r.grants.FindActiveGrant(lookupCtx, user.ID, appID)
	if err != nil {
		return r.denyLookupFailed(ctx, appID, err), nil
	}
	if grant != nil {
		return AccessStatus{
			HasAccess:  true,
			Reason:     ReasonDirectGrant,
			GrantedVia: grant.GrantedVia,
			Message:    "Access granted",
		}, nil
	}

	if app.BundleID != "" {
		sibling, err := r.grants.FindAnyActiveGrant(lookupCtx, user.ID, r.registry.BundleApps(app.BundleID))
		if err != nil {
			return r.denyLookupFailed(ctx, appID, err), nil
		}
		if sibling != nil {
			return AccessStatus{
				HasAccess:  true,
				Reason:     ReasonBundleGrant,
				GrantedVia: ViaBundle,
				Message:    fmt.Sprintf("Unlocked by bundle %s", app.BundleID),
			}, nil
		}
	}

	return AccessStatus{
		Reason:  ReasonNoActiveGrant,
		Message: "Purchase required to access this app",
	}, nil
}

// denyLookupFailed converts a grants-store failure into a deny. Paid content
// never fails open, and the failure is logged so a denied customer is
// distinguishable from a broken store.
func (r *Resolver) denyLookupFailed(ctx context.Context, appID string, err error) AccessStatus {
	canonlog.ErrorAdd(ctx, fmt.Errorf("grant lookup for app %s: %w", appID, err))
	return AccessStatus{
		Reason:  ReasonLookupFailed,
		Message: "Access check unavailable, try again",
	}
}
