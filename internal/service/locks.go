package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/memora-dev/memora/internal/scheduler"
)

// lockManager serializes review processing per user/item pair. Rating
// processing is not commutative, so two concurrent submissions for the same
// item must never interleave; submissions for different items proceed
// independently.
type lockManager struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	ch   chan struct{}
	refs int
}

func newLockManager() *lockManager {
	return &lockManager{locks: make(map[string]*itemLock)}
}

// acquire blocks until the lock for key is held or ctx expires. On success
// it returns a release function; on expiry it returns ErrLockTimeout.
func (m *lockManager) acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	lock := m.locks[key]
	if lock == nil {
		lock = &itemLock{ch: make(chan struct{}, 1)}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			m.unref(key, lock)
		}, nil
	case <-ctx.Done():
		m.unref(key, lock)
		return nil, fmt.Errorf("%w: %s", scheduler.ErrLockTimeout, key)
	}
}

func (m *lockManager) unref(key string, lock *itemLock) {
	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
