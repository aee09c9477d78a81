package entitlement

import (
	"context"
	"fmt"
	"time"
)

// BundleAccessResult reports what a purchase unlocked.
type BundleAccessResult struct {
	UserID       string
	AppID        string
	BundleID     string
	UnlockedApps []string
	Grant        *Grant
}

// GrantBundleAccess records a captured payment for purchasedAppID and returns
// the full set of apps it unlocks: the purchased app plus every app in its
// bundle, if it has one. Only one grant row is written, for the purchased
// app; siblings unlock at resolve time through bundle propagation.
//
// The call is idempotent per payment id: if the purchased app already has an
// active grant backed by the same payment, no new row is written and the
// existing grant is returned. Free apps never accept payments
// (ErrFreeAppPayment), and unknown apps are an error.
func (r *Resolver) GrantBundleAccess(ctx context.Context, userID, purchasedAppID, paymentID string, expiresAt *time.Time) (*BundleAccessResult, error) {
	app, err := r.registry.App(purchasedAppID)
	if err != nil {
		return nil, err
	}
	if app.Type == AppFree {
		return nil, fmt.Errorf("%w: %q", ErrFreeAppPayment, purchasedAppID)
	}

	unlocked := []string{purchasedAppID}
	if app.BundleID != "" {
		unlocked = r.registry.BundleApps(app.BundleID)
	}

	result := &BundleAccessResult{
		UserID:       userID,
		AppID:        purchasedAppID,
		BundleID:     app.BundleID,
		UnlockedApps: unlocked,
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	existing, err := r.grants.FindActiveGrant(lookupCtx, userID, purchasedAppID)
	if err != nil {
		return nil, fmt.Errorf("grant lookup for app %s: %w", purchasedAppID, err)
	}
	if existing != nil && paymentID != "" && existing.PaymentID == paymentID {
		result.Grant = existing
		return result, nil
	}

	grant, err := r.grants.InsertGrant(ctx, Grant{
		UserID:     userID,
		AppID:      purchasedAppID,
		GrantedVia: ViaPayment,
		PaymentID:  paymentID,
		GrantedAt:  time.Now(),
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("insert grant for app %s: %w", purchasedAppID, err)
	}

	result.Grant = grant
	return result, nil
}
