// Package asyncutil provides the cancellation-aware primitives the connection
// pool and connection layers are built on: a strictly-FIFO bounded semaphore and
// a cancelable mutex. These stand in for the coroutine-based async primitives of
// the C++ original (boost::requests::detail::async_semaphore / detail::mutex,
// see _examples/original_source/include/boost/requests/async_semaphore.hpp and
// detail/mutex.hpp) — here expressed as plain goroutine-safe Go types instead of
// a resumable state machine, since Go already has first-class blocking/cancellation
// via context.Context.
package asyncutil

import (
	"container/list"
	"context"
	"sync"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// Semaphore is a counting semaphore whose waiters are released in strict FIFO
// order. Unlike a buffered-channel semaphore, the wait queue is explicit, so a
// canceled waiter can remove itself without disturbing the order of the rest.
type Semaphore struct {
	mu      sync.Mutex
	permits int
	waiters *list.List // of *semWaiter
}

type semWaiter struct {
	ready   chan struct{}
	aborted bool
}

// NewSemaphore creates a semaphore with n permits immediately available.
func NewSemaphore(n int) *Semaphore {
	if n < 0 {
		n = 0
	}
	return &Semaphore{permits: n, waiters: list.New()}
}

// Acquire blocks until a permit is available or ctx is done. On cancellation the
// waiter is removed from the FIFO queue and the permit pool is left untouched
// (operation_aborted; no slot was ever handed out).
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.permits > 0 && s.waiters.Len() == 0 {
		s.permits--
		s.mu.Unlock()
		return nil
	}
	w := &semWaiter{ready: make(chan struct{})}
	elem := s.waiters.PushBack(w)
	s.mu.Unlock()

	select {
	case <-w.ready:
		if w.aborted {
			return errors.NewAbortedError("semaphore_acquire")
		}
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		select {
		case <-w.ready:
			// Already granted a permit in the race between ctx.Done and the
			// release; keep it rather than leaking a permit.
			s.mu.Unlock()
			if w.aborted {
				return errors.NewAbortedError("semaphore_acquire")
			}
			return nil
		default:
			s.waiters.Remove(elem)
			s.mu.Unlock()
			return errors.NewAbortedError("semaphore_acquire")
		}
	}
}

// TryAcquire acquires a permit without blocking, returning false if none is free.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits > 0 && s.waiters.Len() == 0 {
		s.permits--
		return true
	}
	return false
}

// Release returns a permit, handing it directly to the oldest queued waiter if
// one exists (FIFO), otherwise incrementing the free-permit count.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		front := s.waiters.Front()
		if front == nil {
			s.permits++
			return
		}
		s.waiters.Remove(front)
		w := front.Value.(*semWaiter)
		close(w.ready)
		return
	}
}

// Grow adds n permits to the pool, e.g. when the pool's configured limit changes.
func (s *Semaphore) Grow(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		front := s.waiters.Front()
		if front == nil {
			s.permits++
			continue
		}
		s.waiters.Remove(front)
		close(front.Value.(*semWaiter).ready)
	}
}

// AbortAll releases every queued waiter with operation_aborted, used when the
// owning pool is torn down. Waiters observe ctx.Done() themselves in the normal
// path; this handles waiters whose context never cancels but whose pool is gone.
func (s *Semaphore) AbortAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		front := s.waiters.Front()
		if front == nil {
			return
		}
		s.waiters.Remove(front)
		w := front.Value.(*semWaiter)
		w.aborted = true
		close(w.ready)
	}
}

// Len reports the number of goroutines currently queued (for tests/diagnostics).
func (s *Semaphore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// Available reports the number of free permits not currently claimed by a waiter.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}
