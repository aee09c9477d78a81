package entitlement

import (
	"context"
	"time"
)

// GrantSource records how a grant came to exist.
type GrantSource string

const (
	ViaPayment GrantSource = "payment"
	ViaBundle  GrantSource = "bundle"
	ViaAdmin   GrantSource = "admin"
	ViaOTP     GrantSource = "otp"
	ViaPromo   GrantSource = "promo"
)

// Grant is one durable (user, app) access record. Grants are never mutated
// after creation and never deleted: expiry is a pure function of time, and
// historical rows stay behind as the audit trail. Access lost to expiry is
// only restored by a fresh grant.
type Grant struct {
	UserID           string
	AppID            string
	GrantedVia       GrantSource
	PaymentID        string
	GrantedAt        time.Time
	ExpiresAt        *time.Time // nil = lifetime
	GrantedByAdminID string
	Notes            string
}

// ActiveAt reports whether the grant conveys access at the given instant.
// A nil ExpiresAt is a lifetime grant and never expires.
func (g Grant) ActiveAt(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// morePermissive picks the grant that matters for the access decision:
// lifetime beats any expiring grant, and among expiring grants the latest
// expiry wins.
func morePermissive(a, b *Grant) *Grant {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.ExpiresAt == nil:
		return a
	case b.ExpiresAt == nil:
		return b
	case b.ExpiresAt.After(*a.ExpiresAt):
		return b
	default:
		return a
	}
}

// GrantStore is the external grants collaborator. Implementations return
// (nil, nil) when no active grant exists; an error means the lookup itself
// failed, which the resolver treats as deny.
type GrantStore interface {
	// FindActiveGrant returns the most permissive active grant for (user, app).
	FindActiveGrant(ctx context.Context, userID, appID string) (*Grant, error)

	// FindAnyActiveGrant returns the most permissive active grant the user
	// holds on any of the given apps.
	FindAnyActiveGrant(ctx context.Context, userID string, appIDs []string) (*Grant, error)

	// InsertGrant appends a new grant record and returns the stored copy.
	InsertGrant(ctx context.Context, g Grant) (*Grant, error)
}
