package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SyncConcurrencyConfig bounds how many sync passes run at once for one user.
// A user with many integrations otherwise monopolizes the marketplace rate
// budgets during a full sync run.
type SyncConcurrencyConfig struct {
	MaxConcurrentPerUser int
	AcquireTimeout       time.Duration
}

// DefaultSyncConcurrencyConfig returns production defaults
func DefaultSyncConcurrencyConfig() *SyncConcurrencyConfig {
	return &SyncConcurrencyConfig{
		MaxConcurrentPerUser: 3,
		AcquireTimeout:       5 * time.Minute,
	}
}

// UserSemaphore manages per-user sync concurrency limits
type UserSemaphore struct {
	mu     sync.Mutex
	sems   map[string]chan struct{}
	config *SyncConcurrencyConfig
}

// NewUserSemaphore creates a new per-user semaphore manager
func NewUserSemaphore(config *SyncConcurrencyConfig) *UserSemaphore {
	if config == nil {
		config = DefaultSyncConcurrencyConfig()
	}
	return &UserSemaphore{
		sems:   make(map[string]chan struct{}),
		config: config,
	}
}

func (s *UserSemaphore) sem(userID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sem, exists := s.sems[userID]; exists {
		return sem
	}
	sem := make(chan struct{}, s.config.MaxConcurrentPerUser)
	s.sems[userID] = sem
	return sem
}

// Acquire claims a sync slot for the user, waiting up to the configured
// timeout. The returned release function must be called when the pass ends.
func (s *UserSemaphore) Acquire(ctx context.Context, userID string) (func(), error) {
	sem := s.sem(userID)

	waitCtx := ctx
	if s.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.config.AcquireTimeout)
		defer cancel()
	}

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-waitCtx.Done():
		return nil, fmt.Errorf("timed out waiting for a sync slot for user %s", userID)
	}
}

// Active reports how many sync passes the user currently holds
func (s *UserSemaphore) Active(userID string) int {
	return len(s.sem(userID))
}
