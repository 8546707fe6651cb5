package archive

import (
	"context"
	"sync"
)

// Locker serialises writers of one archive id.
// The returned unlock func must be called exactly once; extra calls are no-ops.
type Locker interface {
	Lock(ctx context.Context, id string) (func(), error)
}

type memoryLock struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker is an in-process Locker. Entries are dropped once no goroutine
// holds or waits for them, so the map does not grow with the number of ids seen.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLock
}

// NewMemoryLocker creates an empty MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memoryLock)}
}

// Lock implements Locker. It gives up when ctx is done.
func (l *MemoryLocker) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &memoryLock{sem: make(chan struct{}, 1)}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(id, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.sem
			l.release(id, lk)
		})
	}, nil
}

func (l *MemoryLocker) release(id string, lk *memoryLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}

// held reports how many ids currently have holders or waiters
func (l *MemoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
