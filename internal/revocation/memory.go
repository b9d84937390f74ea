package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is a thread-safe in-memory set of revoked tokens.  It
// starts empty and lives as long as the process; it is not shared between
// instances.
//
// Entries whose token expiry has passed are dropped by Cleanup, which
// Revoke runs opportunistically.  Such tokens fail decode anyway.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRegistry) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.Cleanup(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	// keep the later expiry if the same token is revoked twice
	if prev, ok := m.entries[token]; ok && prev.After(expiresAt) {
		return nil
	}
	m.entries[token] = expiresAt
	return nil
}

func (m *MemoryRegistry) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[token]
	return ok, nil
}

// Cleanup removes entries whose token expired at or before now and
// returns how many were removed.
func (m *MemoryRegistry) Cleanup(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, token)
			removed++
		}
	}
	return removed
}

// Len returns the current number of entries.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
