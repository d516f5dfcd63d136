// Package locker serializes work on the same key inside one process.
package locker

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrLockTimeout is returned when a key stays held for longer than the wait limit.
var ErrLockTimeout = errors.New("timed out waiting for lock")

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Registry hands out one exclusive slot per key. Keys nobody holds or waits
// for are dropped so the map does not grow with every invoice ever paid.
type Registry struct {
	mu      sync.Mutex
	entries map[uint]*entry
	wait    time.Duration
}

func NewRegistry(wait time.Duration) *Registry {
	return &Registry{
		entries: make(map[uint]*entry),
		wait:    wait,
	}
}

// Acquire blocks until key is free, ctx is done or the wait limit passes.
// The returned func releases the key and must be called exactly once.
func (r *Registry) Acquire(ctx context.Context, key uint) (func(), error) {
	e := r.ref(key)

	waitCtx := ctx
	if r.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		r.unref(key)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			r.unref(key)
		})
	}, nil
}

// Len returns the number of keys currently held or waited on.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) ref(key uint) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		r.entries[key] = e
	}
	e.refs++
	return e
}

func (r *Registry) unref(key uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(r.entries, key)
	}
}
