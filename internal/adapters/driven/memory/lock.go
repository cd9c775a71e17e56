package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a single-process DistributedLock with TTL expiry. It backs the
// ingestion lock when neither Redis nor PostgreSQL is configured.
type Lock struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewLock creates an empty lock table.
func NewLock() *Lock {
	return &Lock{
		locks: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiry, ok := l.locks[name]; ok && now.Before(expiry) {
		return false, nil
	}
	l.locks[name] = now.Add(ttl)
	return true, nil
}

func (l *Lock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, name)
	return nil
}

func (l *Lock) Extend(_ context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	expiry, ok := l.locks[name]
	if !ok || !now.Before(expiry) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.locks[name] = now.Add(ttl)
	return nil
}

// Ping always succeeds.
func (l *Lock) Ping(context.Context) error {
	return nil
}
