// Package lock provides mutual exclusion scoped to a single key, so that
// admission decisions for the same event are serialized while decisions for
// different events proceed independently.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaitTimeout is returned when a lock could not be acquired within the
// configured wait bound. The guarded operation was not started.
var ErrWaitTimeout = errors.New("timed out waiting for lock")

// DefaultWait bounds lock acquisition so a slow store cannot queue requests
// without limit.
const DefaultWait = 5 * time.Second

// Keyed is a registry of independent mutexes, one per key, created lazily on
// first use. The registry grows one entry per distinct key ever locked and
// lives for the lifetime of the process.
type Keyed struct {
	wait time.Duration
	sems sync.Map // key string -> chan struct{} with capacity 1
}

// New returns a Keyed registry whose acquisitions wait at most the given
// duration. A non-positive wait falls back to DefaultWait.
func New(wait time.Duration) *Keyed {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Keyed{wait: wait}
}

// WithLock acquires the exclusive lock for key, runs fn, and releases the
// lock on every exit path, including a panic inside fn. It returns whatever
// fn returns. If the wait bound expires first it returns ErrWaitTimeout; if
// ctx is done first it returns ctx.Err(). Either way fn never runs.
func (k *Keyed) WithLock(ctx context.Context, key string, fn func() error) error {
	sem := k.sem(key)

	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-timer.C:
		return ErrWaitTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	return fn()
}

// sem returns the semaphore channel for key, creating it atomically on first
// access.
func (k *Keyed) sem(key string) chan struct{} {
	if v, ok := k.sems.Load(key); ok {
		return v.(chan struct{})
	}
	v, _ := k.sems.LoadOrStore(key, make(chan struct{}, 1))
	return v.(chan struct{})
}
