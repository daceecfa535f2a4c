package room

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSaver_CoalescesWithinWindow(t *testing.T) {
	// WHAT: many notifications inside one window fire exactly one save.
	// WHY: this is the throttle's whole contract.
	var saves atomic.Int32
	s := newSaver(50*time.Millisecond, func(context.Context) error {
		saves.Add(1)
		return nil
	}, testLogger())
	defer s.Close()

	for i := 0; i < 20; i++ {
		s.Notify()
	}
	if got := saves.Load(); got != 0 {
		t.Fatalf("saves before expiry: %d", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := saves.Load(); got != 1 {
		t.Fatalf("saves after expiry: %d, want 1", got)
	}
}

func TestSaver_IdleAgainAfterFire(t *testing.T) {
	var saves atomic.Int32
	s := newSaver(30*time.Millisecond, func(context.Context) error {
		saves.Add(1)
		return nil
	}, testLogger())
	defer s.Close()

	s.Notify()
	time.Sleep(60 * time.Millisecond)
	s.Notify()
	time.Sleep(60 * time.Millisecond)

	if got := saves.Load(); got != 2 {
		t.Fatalf("saves: %d, want 2", got)
	}
}

func TestSaver_CloseCancelsPending(t *testing.T) {
	var saves atomic.Int32
	s := newSaver(30*time.Millisecond, func(context.Context) error {
		saves.Add(1)
		return nil
	}, testLogger())

	s.Notify()
	s.Close()
	time.Sleep(60 * time.Millisecond)

	if got := saves.Load(); got != 0 {
		t.Fatalf("saves after close: %d, want 0", got)
	}
}

func TestSaver_FlushCancelsTimerAndSavesOnce(t *testing.T) {
	var saves atomic.Int32
	s := newSaver(30*time.Millisecond, func(context.Context) error {
		saves.Add(1)
		return nil
	}, testLogger())
	defer s.Close()

	s.Notify()
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if got := saves.Load(); got != 1 {
		t.Fatalf("saves: %d, want 1 (flush only, timer cancelled)", got)
	}
}
