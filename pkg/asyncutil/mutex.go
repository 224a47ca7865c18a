package asyncutil

import (
	"context"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// Mutex is a single-holder lock whose Lock accepts a context, so a connection's
// per-exchange mutex (spec.md §4.1/§5) can be released from a waiter list on
// cancellation instead of blocking forever.
type Mutex struct {
	ch chan struct{}
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	m := &Mutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// Lock blocks until the token is acquired or ctx is done.
func (m *Mutex) Lock(ctx context.Context) error {
	select {
	case <-m.ch:
		return nil
	case <-ctx.Done():
		return errors.NewAbortedError("mutex_acquire")
	}
}

// TryLock acquires without blocking.
func (m *Mutex) TryLock() bool {
	select {
	case <-m.ch:
		return true
	default:
		return false
	}
}

// Unlock releases the token. Unlocking an already-unlocked Mutex panics, the
// same contract as sync.Mutex.
func (m *Mutex) Unlock() {
	select {
	case m.ch <- struct{}{}:
	default:
		panic("asyncutil: unlock of unlocked Mutex")
	}
}
