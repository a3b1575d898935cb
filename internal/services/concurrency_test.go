package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserSemaphoreLimitsPerUser(t *testing.T) {
	ctx := context.Background()
	sem := NewUserSemaphore(&SyncConcurrencyConfig{
		MaxConcurrentPerUser: 2,
		AcquireTimeout:       20 * time.Millisecond,
	})

	release1, err := sem.Acquire(ctx, "user-1")
	assert.NoError(t, err)
	release2, err := sem.Acquire(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, sem.Active("user-1"))

	_, err = sem.Acquire(ctx, "user-1")
	assert.Error(t, err)

	// another user has their own budget
	releaseOther, err := sem.Acquire(ctx, "user-2")
	assert.NoError(t, err)
	releaseOther()

	release1()
	release3, err := sem.Acquire(ctx, "user-1")
	assert.NoError(t, err)
	release3()
	release2()
	assert.Equal(t, 0, sem.Active("user-1"))
}

func TestUserSemaphoreHonorsContextCancel(t *testing.T) {
	sem := NewUserSemaphore(&SyncConcurrencyConfig{
		MaxConcurrentPerUser: 1,
		AcquireTimeout:       time.Minute,
	})

	release, err := sem.Acquire(context.Background(), "user-1")
	assert.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sem.Acquire(ctx, "user-1")
	assert.Error(t, err)
}

func TestUserSemaphoreDefaults(t *testing.T) {
	sem := NewUserSemaphore(nil)
	release, err := sem.Acquire(context.Background(), "user-1")
	assert.NoError(t, err)
	release()
}
