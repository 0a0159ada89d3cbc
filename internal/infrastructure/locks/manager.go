// Package locks provides an in-process advisory lock manager keyed by
// opaque strings. Locks are cooperative: they only serialize callers
// that go through the same manager, which is sufficient for a single
// engine process owning its storage file.
package locks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// Manager implements ports.Locker. The zero value is not usable; call
// NewManager.
type Manager struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewManager creates an empty lock manager.
func NewManager() *Manager {
	return &Manager{held: make(map[string]chan struct{})}
}

// Acquire takes every key, waiting for holders to release. Keys are
// deduplicated and acquired in sorted order, so two callers locking
// overlapping sets cannot deadlock. On context expiry every key
// acquired so far is released and entities.ErrLockTimeout is returned.
func (m *Manager) Acquire(ctx context.Context, keys ...string) (func(), error) {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			unique = append(unique, key)
		}
	}
	sort.Strings(unique)

	acquired := make([]string, 0, len(unique))
	releaseAcquired := func() {
		for _, key := range acquired {
			m.release(key)
		}
	}

	for _, key := range unique {
		if err := m.acquireOne(ctx, key); err != nil {
			releaseAcquired()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(releaseAcquired) }, nil
}

// acquireOne blocks until key is free or the context is done.
func (m *Manager) acquireOne(ctx context.Context, key string) error {
	for {
		m.mu.Lock()
		holder, taken := m.held[key]
		if !taken {
			m.held[key] = make(chan struct{})
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %q: %w", key, entities.ErrLockTimeout)
		case <-holder:
			// Holder released; retry the take.
		}
	}
}

// release frees one key and wakes every waiter.
func (m *Manager) release(key string) {
	m.mu.Lock()
	holder, taken := m.held[key]
	if taken {
		delete(m.held, key)
		close(holder)
	}
	m.mu.Unlock()
}
