package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemory_Increment(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*Memory)
		key    string
		window time.Duration
		want   int64
	}{
		{
			name:   "first request starts a window at 1",
			key:    "auth:1.2.3.4",
			window: time.Minute,
			want:   1,
		},
		{
			name: "live window increments",
			setup: func(m *Memory) {
				m.entries["auth:1.2.3.4"] = &memoryEntry{
					count:       5,
					windowStart: time.Now(),
					window:      time.Minute,
				}
			},
			key:    "auth:1.2.3.4",
			window: time.Minute,
			want:   6,
		},
		{
			name: "expired window is replaced, not incremented",
			setup: func(m *Memory) {
				m.entries["auth:1.2.3.4"] = &memoryEntry{
					count:       10,
					windowStart: time.Now().Add(-2 * time.Minute),
					window:      time.Minute,
				}
			},
			key:    "auth:1.2.3.4",
			window: time.Minute,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			defer m.Close()

			if tt.setup != nil {
				tt.setup(m)
			}

			got, _, err := m.Increment(context.Background(), tt.key, tt.window)
			if err != nil {
				t.Fatalf("Increment() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Increment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemory_Increment_TTL(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	_, ttl, err := m.Increment(context.Background(), "payment:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if ttl != time.Minute {
		t.Errorf("fresh window ttl = %v, want %v", ttl, time.Minute)
	}

	_, ttl, err = m.Increment(context.Background(), "payment:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("live window ttl = %v, want in (0, 1m]", ttl)
	}
}

func TestMemory_Get(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()

	if got, _ := m.Get(ctx, "missing"); got != 0 {
		t.Errorf("Get(missing) = %d, want 0", got)
	}

	m.Increment(ctx, "admin:10.0.0.1", time.Minute)
	m.Increment(ctx, "admin:10.0.0.1", time.Minute)

	if got, _ := m.Get(ctx, "admin:10.0.0.1"); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}

	// Expired entries read as absent.
	m.entries["admin:10.0.0.1"].windowStart = time.Now().Add(-2 * time.Minute)
	if got, _ := m.Get(ctx, "admin:10.0.0.1"); got != 0 {
		t.Errorf("Get(expired) = %d, want 0", got)
	}
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	m.Increment(ctx, "auth:1.2.3.4", time.Minute)

	if err := m.Reset(ctx, "auth:1.2.3.4"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	got, _, _ := m.Increment(ctx, "auth:1.2.3.4", time.Minute)
	if got != 1 {
		t.Errorf("Increment() after Reset = %d, want 1", got)
	}
}

func TestMemory_SweepEvictsOnlyStaleEntries(t *testing.T) {
	m := NewMemory(WithMaxEntries(3))
	defer m.Close()

	now := time.Now()

	// Stale: window started more than two windows ago.
	m.entries["auth:old-1"] = &memoryEntry{count: 1, windowStart: now.Add(-3 * time.Minute), window: time.Minute}
	m.entries["auth:old-2"] = &memoryEntry{count: 1, windowStart: now.Add(-150 * time.Second), window: time.Minute}
	// Expired but not yet stale: must survive the sweep.
	m.entries["auth:expired"] = &memoryEntry{count: 4, windowStart: now.Add(-90 * time.Second), window: time.Minute}
	// Live window: must survive the sweep.
	m.entries["auth:live"] = &memoryEntry{count: 2, windowStart: now, window: time.Minute}

	// Pushes the map past the cap and triggers the sweep.
	if _, _, err := m.Increment(context.Background(), "auth:new", time.Minute); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	if _, ok := m.entries["auth:old-1"]; ok {
		t.Error("stale entry auth:old-1 survived sweep")
	}
	if _, ok := m.entries["auth:old-2"]; ok {
		t.Error("stale entry auth:old-2 survived sweep")
	}
	if _, ok := m.entries["auth:expired"]; !ok {
		t.Error("not-yet-stale entry was evicted")
	}
	if _, ok := m.entries["auth:live"]; !ok {
		t.Error("live entry was evicted")
	}
	if _, ok := m.entries["auth:new"]; !ok {
		t.Error("new entry was evicted")
	}
}

func TestMemory_SweepNotTriggeredBelowCap(t *testing.T) {
	m := NewMemory(WithMaxEntries(100))
	defer m.Close()

	m.entries["auth:old"] = &memoryEntry{count: 1, windowStart: time.Now().Add(-time.Hour), window: time.Minute}

	m.Increment(context.Background(), "auth:new", time.Minute)

	if _, ok := m.entries["auth:old"]; !ok {
		t.Error("entry swept below the size cap")
	}
}

func TestMemory_Increment_Concurrent(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	key := "auth:concurrent"
	goroutines := 10
	perGoroutine := 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, _, err := m.Increment(ctx, key, time.Minute); err != nil {
					t.Errorf("Increment() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, _ := m.Get(ctx, key)
	want := int64(goroutines * perGoroutine)
	if got != want {
		t.Errorf("final count = %d, want %d", got, want)
	}
}

func TestMemory_DistinctKeysIndependent(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.Increment(ctx, fmt.Sprintf("auth:10.0.0.%d", i), time.Minute)
	}

	for i := 0; i < 5; i++ {
		if got, _ := m.Get(ctx, fmt.Sprintf("auth:10.0.0.%d", i)); got != 1 {
			t.Errorf("key %d count = %d, want 1", i, got)
		}
	}
}
