package registration

import (
	"context"
	"sync"
)

// LockTable is an in-process table of exclusive locks keyed by string. Callers for the
// same key serialize; different keys never block each other. Entries are removed once
// no goroutine holds or waits for them.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*keyedLock)}
}

// Acquire blocks until the lock for key is held or ctx is done. The returned release
// func is safe to call more than once.
func (t *LockTable) Acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		t.unref(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			t.unref(key, l)
		})
	}, nil
}

func (t *LockTable) unref(key string, l *keyedLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
}

// size returns the number of keys currently held or awaited.
func (t *LockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
