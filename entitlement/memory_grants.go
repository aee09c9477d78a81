package entitlement

import (
	"context"
	"sync"
	"time"
)

// MemoryGrants is an in-memory, append-only GrantStore for single-replica
// deployments and tests. Rows are never updated or deleted.
type MemoryGrants struct {
	mu     sync.RWMutex
	grants []Grant
}

// NewMemoryGrants creates an empty in-memory grant store.
func NewMemoryGrants() *MemoryGrants {
	return &MemoryGrants{}
}

func (m *MemoryGrants) FindActiveGrant(_ context.Context, userID, appID string) (*Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var best *Grant
	for i := range m.grants {
		g := &m.grants[i]
		if g.UserID == userID && g.AppID == appID && g.ActiveAt(now) {
			best = morePermissive(best, g)
		}
	}
	return copyGrant(best), nil
}

func (m *MemoryGrants) FindAnyActiveGrant(_ context.Context, userID string, appIDs []string) (*Grant, error) {
	wanted := make(map[string]struct{}, len(appIDs))
	for _, id := range appIDs {
		wanted[id] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var best *Grant
	for i := range m.grants {
		g := &m.grants[i]
		if g.UserID != userID || !g.ActiveAt(now) {
			continue
		}
		if _, ok := wanted[g.AppID]; ok {
			best = morePermissive(best, g)
		}
	}
	return copyGrant(best), nil
}

func (m *MemoryGrants) InsertGrant(_ context.Context, g Grant) (*Grant, error) {
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.grants = append(m.grants, g)
	stored := m.grants[len(m.grants)-1]
	return &stored, nil
}

// Len reports the total number of grant rows, active or expired.
func (m *MemoryGrants) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.grants)
}

func copyGrant(g *Grant) *Grant {
	if g == nil {
		return nil
	}
	dup := *g
	if g.ExpiresAt != nil {
		exp := *g.ExpiresAt
		dup.ExpiresAt = &exp
	}
	return &dup
}
