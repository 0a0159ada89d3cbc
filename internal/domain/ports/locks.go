package ports

import "context"

// Locker is a cooperative advisory lock manager keyed by opaque
// strings. Implementations must acquire multiple keys in a globally
// consistent order so two overlapping lock sets cannot deadlock.
type Locker interface {
	// Acquire takes every key, blocking until all are held or the
	// context deadline hits (entities.ErrLockTimeout). The returned
	// release function frees all keys and is safe to call once.
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}
