package memory

import (
	"context"
	"testing"
	"time"
)

func TestLock_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	lock := NewLock()

	ok, err := lock.Acquire(ctx, "ingest:manual", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v; want true, nil", ok, err)
	}

	ok, err = lock.Acquire(ctx, "ingest:manual", time.Minute)
	if err != nil || ok {
		t.Fatalf("second acquire = %v, %v; want false, nil", ok, err)
	}

	ok, _ = lock.Acquire(ctx, "ingest:other", time.Minute)
	if !ok {
		t.Fatal("independent names should not contend")
	}

	if err := lock.Release(ctx, "ingest:manual"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = lock.Acquire(ctx, "ingest:manual", time.Minute)
	if !ok {
		t.Fatal("expected acquire after release")
	}
}

func TestLock_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lock := NewLock()
	lock.now = func() time.Time { return now }

	if ok, _ := lock.Acquire(ctx, "a", time.Second); !ok {
		t.Fatal("expected acquire")
	}

	now = now.Add(2 * time.Second)
	if err := lock.Extend(ctx, "a", time.Second); err == nil {
		t.Fatal("extend of an expired lock should fail")
	}
	if ok, _ := lock.Acquire(ctx, "a", time.Second); !ok {
		t.Fatal("expired lock should be acquirable")
	}

	now = now.Add(500 * time.Millisecond)
	if err := lock.Extend(ctx, "a", 10*time.Second); err != nil {
		t.Fatalf("extend: %v", err)
	}
	now = now.Add(5 * time.Second)
	if ok, _ := lock.Acquire(ctx, "a", time.Second); ok {
		t.Fatal("extended lock should still be held")
	}
}

func TestLock_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLock().Acquire(ctx, "a", time.Second); err == nil {
		t.Fatal("expected context error")
	}
}

func TestLock_ReleaseUnknownIsSafe(t *testing.T) {
	if err := NewLock().Release(context.Background(), "missing"); err != nil {
		t.Fatalf("release: %v", err)
	}
}
