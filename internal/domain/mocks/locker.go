package mocks

import (
	"context"
	"sync"
)

// Locker is a mock ports.Locker that records acquisitions and never
// blocks. Err, when set, is returned by Acquire.
type Locker struct {
	mu       sync.Mutex
	Acquired [][]string
	Err      error
}

// Acquire records the requested keys and returns a no-op release.
func (l *Locker) Acquire(_ context.Context, keys ...string) (func(), error) {
	if l.Err != nil {
		return nil, l.Err
	}
	l.mu.Lock()
	l.Acquired = append(l.Acquired, append([]string(nil), keys...))
	l.mu.Unlock()
	return func() {}, nil
}
