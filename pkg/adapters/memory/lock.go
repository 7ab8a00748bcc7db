package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/weave/pkg/ports"
)

// lockEntry holds the per-key semaphore and the number of holders and waiters.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Locker implements ports.DistributedLocker for a single process.
// Entries are reference counted so keys that are no longer locked are dropped.
// The ttl argument is ignored: a lock lives until its UnlockFunc is called.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// acquire gets or creates the entry for key and increments its reference count.
// Every acquire must be paired with a release.
func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when it reaches zero.
func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, key)
	}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	entry := l.acquire(key)
	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-entry.sem
			l.release(key)
		})
		return nil
	}, nil
}

// Len reports how many keys are locked or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ ports.DistributedLocker = (*Locker)(nil)
