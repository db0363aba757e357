package corpus

import (
	"context"
	"sync"
)

// Locker serializes download-modify-upload cycles on a repository.
// Lock blocks until key is free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Locks is a Locker for engines that share one process.
// Separate processes writing the same repository need a shared Locker such as db.AdvisoryLocker.
type Locks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocks returns an empty lock registry.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]chan struct{})}
}

// Lock implements Locker.
func (l *Locks) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.locks[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.locks[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
