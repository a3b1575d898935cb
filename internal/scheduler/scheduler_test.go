package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"seller-analytics-service/internal/services"
)

type countingSyncer struct {
	calls atomic.Int64
	block chan struct{}
}

func (c *countingSyncer) SyncAllIntegrations(ctx context.Context) ([]services.SyncResult, error) {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	return nil, nil
}

type countingAlerts struct {
	calls atomic.Int64
}

func (c *countingAlerts) GenerateAll(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

type countingNotifier struct {
	calls atomic.Int64
}

func (c *countingNotifier) DispatchPending(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

type countingRetention struct {
	calls  atomic.Int64
	cutoff atomic.Value
}

func (c *countingRetention) PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error) {
	c.calls.Add(1)
	c.cutoff.Store(olderThan)
	return 1, nil
}

func TestRunForeverTicksEveryJob(t *testing.T) {
	syncer := &countingSyncer{}
	alerts := &countingAlerts{}
	notifier := &countingNotifier{}
	retention := &countingRetention{}

	sched := New(Config{
		SyncInterval:      10 * time.Millisecond,
		AlertInterval:     10 * time.Millisecond,
		NotifyInterval:    10 * time.Millisecond,
		RetentionInterval: 10 * time.Millisecond,
		RetentionAge:      time.Hour,
	}, syncer, alerts, notifier, retention, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	assert.Greater(t, syncer.calls.Load(), int64(0))
	assert.Greater(t, alerts.calls.Load(), int64(0))
	assert.Greater(t, notifier.calls.Load(), int64(0))
	assert.Greater(t, retention.calls.Load(), int64(0))

	cutoff, ok := retention.cutoff.Load().(time.Time)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Hour), cutoff, time.Minute)
}

func TestRunForeverSkipsDisabledJobs(t *testing.T) {
	syncer := &countingSyncer{}
	alerts := &countingAlerts{}
	notifier := &countingNotifier{}
	retention := &countingRetention{}

	sched := New(Config{
		SyncInterval:   10 * time.Millisecond,
		AlertInterval:  0,
		NotifyInterval: 0,
	}, syncer, alerts, notifier, retention, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	assert.Greater(t, syncer.calls.Load(), int64(0))
	assert.Equal(t, int64(0), alerts.calls.Load())
	assert.Equal(t, int64(0), notifier.calls.Load())
	assert.Equal(t, int64(0), retention.calls.Load())
}

func TestOverlappingTicksAreSkipped(t *testing.T) {
	syncer := &countingSyncer{block: make(chan struct{})}

	sched := New(Config{
		SyncInterval: 10 * time.Millisecond,
	}, syncer, &countingAlerts{}, &countingNotifier{}, &countingRetention{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	// the first tick blocks inside the job; later ticks must not stack up
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), syncer.calls.Load())

	close(syncer.block)
	cancel()
	<-done
}
