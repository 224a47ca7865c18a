package asyncutil

import (
	"context"
	"testing"
	"time"
)

func TestMutexLockUnlock(t *testing.T) {
	m := NewMutex()
	if err := m.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.TryLock() {
		t.Fatal("TryLock succeeded while already held")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock failed on an unlocked Mutex")
	}
	m.Unlock()
}

func TestMutexLockBlocksUntilUnlocked(t *testing.T) {
	m := NewMutex()
	if err := m.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}

	unlocked := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(unlocked)
		m.Unlock()
	}()

	if err := m.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-unlocked:
	default:
		t.Fatal("second Lock returned before the holder unlocked")
	}
	m.Unlock()
}

func TestMutexLockRespectsContextCancellation(t *testing.T) {
	m := NewMutex()
	if err := m.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := m.Lock(ctx); err == nil {
		t.Fatal("expected Lock to fail once ctx is done")
	}
}

func TestMutexUnlockOfUnlockedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double unlock")
		}
	}()
	m := NewMutex()
	m.Unlock()
}
