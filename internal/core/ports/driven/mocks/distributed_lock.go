package mocks

import (
	"context"
	"sync"
	"time"
)

// MockDistributedLock records lock traffic for ingestion tests. Held names
// never expire; tests release or preset them explicitly.
type MockDistributedLock struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	PingFn    func() error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]bool)}
}

func (m *MockDistributedLock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	m.acquired = append(m.acquired, name)
	return true, nil
}

func (m *MockDistributedLock) Release(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

func (m *MockDistributedLock) Extend(context.Context, string, time.Duration) error {
	return nil
}

func (m *MockDistributedLock) Ping(context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Acquired returns every successfully acquired name, in order.
func (m *MockDistributedLock) Acquired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acquired...)
}

// IsHeld reports whether name is currently locked.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name]
}

// SetLockHeld marks name as held by another owner.
func (m *MockDistributedLock) SetLockHeld(name string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = true
}
