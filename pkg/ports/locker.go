package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
// Calling it more than once is harmless.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes runs that share a key, typically one graph.
// Implementations range from an in-process map to a Redis lease.
type DistributedLocker interface {
	// Lock blocks until key is free or ctx is done. ttl caps how long a lease
	// may outlive a crashed holder; in-process lockers may ignore it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// GraphLockKey is the lock key the engine takes while running graphID.
func GraphLockKey(graphID string) string {
	return "graph:" + graphID
}
