package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an in-process fallback for single-instance deployments
// where Redis is disabled. Locks expire after the configured TTL.
type MemoryLocker struct {
	mu    sync.Mutex
	ttl   time.Duration
	locks map[string]time.Time
}

// NewMemoryLocker creates an in-memory locker
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	locker := &MemoryLocker{
		ttl:   ttl,
		locks: make(map[string]time.Time),
	}

	// Start cleanup goroutine to remove expired locks
	go locker.cleanupExpired()

	return locker
}

// Acquire attempts to take the lock. Returns false when already held.
func (ml *MemoryLocker) Acquire(_ context.Context, key string) (bool, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := time.Now()
	if expiry, held := ml.locks[key]; held && now.Before(expiry) {
		return false, nil
	}
	ml.locks[key] = now.Add(ml.ttl)
	return true, nil
}

// Release drops the lock
func (ml *MemoryLocker) Release(_ context.Context, key string) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	delete(ml.locks, key)
	return nil
}

// cleanupExpired periodically removes expired locks
func (ml *MemoryLocker) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ml.mu.Lock()
		now := time.Now()
		for key, expiry := range ml.locks {
			if now.After(expiry) {
				delete(ml.locks, key)
			}
		}
		ml.mu.Unlock()
	}
}
