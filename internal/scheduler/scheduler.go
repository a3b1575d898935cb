package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"seller-analytics-service/internal/services"
)

// Syncer runs sync passes across active integrations
type Syncer interface {
	SyncAllIntegrations(ctx context.Context) ([]services.SyncResult, error)
}

// AlertGenerator evaluates the alert rules across active integrations
type AlertGenerator interface {
	GenerateAll(ctx context.Context) (int, error)
}

// Notifier delivers undelivered alerts
type Notifier interface {
	DispatchPending(ctx context.Context) (int, error)
}

// RetentionStore purges resolved alerts past their retention age
type RetentionStore interface {
	PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error)
}

// Config holds the recurring trigger intervals
type Config struct {
	SyncInterval      time.Duration
	AlertInterval     time.Duration
	NotifyInterval    time.Duration
	RetentionInterval time.Duration
	RetentionAge      time.Duration
	SyncTimeout       time.Duration
}

// Scheduler drives the recurring jobs: marketplace sync, alert generation,
// notification dispatch and retention cleanup. Each job skips its tick while
// a previous run of the same job is still in flight.
type Scheduler struct {
	cfg       Config
	syncer    Syncer
	alerts    AlertGenerator
	notifier  Notifier
	retention RetentionStore
	logger    *zap.Logger

	running map[string]*sync.Mutex
}

// New creates a scheduler wired to the given job implementations
func New(cfg Config, syncer Syncer, alerts AlertGenerator, notifier Notifier, retention RetentionStore, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		syncer:    syncer,
		alerts:    alerts,
		notifier:  notifier,
		retention: retention,
		logger:    logger.Named("scheduler"),
		running: map[string]*sync.Mutex{
			"sync":      {},
			"alerts":    {},
			"notify":    {},
			"retention": {},
		},
	}
}

// RunForever starts every job loop and blocks until ctx is cancelled
func (s *Scheduler) RunForever(ctx context.Context) {
	var wg sync.WaitGroup

	loops := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"sync", s.cfg.SyncInterval, s.runSync},
		{"alerts", s.cfg.AlertInterval, s.runAlerts},
		{"notify", s.cfg.NotifyInterval, s.runNotify},
		{"retention", s.cfg.RetentionInterval, s.runRetention},
	}

	for _, loop := range loops {
		if loop.interval <= 0 {
			s.logger.Info("job disabled", zap.String("job", loop.name))
			continue
		}
		wg.Add(1)
		go func(name string, interval time.Duration, run func(context.Context)) {
			defer wg.Done()
			s.loop(ctx, name, interval, run)
		}(loop.name, loop.interval, loop.run)
	}

	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("job loop started",
		zap.String("job", name),
		zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("job loop stopped", zap.String("job", name))
			return
		case <-ticker.C:
			mu := s.running[name]
			if !mu.TryLock() {
				s.logger.Warn("skipping tick, previous run still in flight",
					zap.String("job", name))
				continue
			}
			run(ctx)
			mu.Unlock()
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	if s.cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SyncTimeout)
		defer cancel()
	}

	results, err := s.syncer.SyncAllIntegrations(ctx)
	if err != nil {
		s.logger.Error("sync run failed", zap.Error(err))
		return
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	s.logger.Info("sync run completed",
		zap.Int("integrations", len(results)),
		zap.Int("failed", failed))
}

func (s *Scheduler) runAlerts(ctx context.Context) {
	created, err := s.alerts.GenerateAll(ctx)
	if err != nil {
		s.logger.Error("alert run finished with failures",
			zap.Int("created", created),
			zap.Error(err))
		return
	}
	s.logger.Info("alert run completed", zap.Int("created", created))
}

func (s *Scheduler) runNotify(ctx context.Context) {
	delivered, err := s.notifier.DispatchPending(ctx)
	if err != nil {
		s.logger.Error("notification dispatch failed", zap.Error(err))
		return
	}
	if delivered > 0 {
		s.logger.Info("notifications delivered", zap.Int("count", delivered))
	}
}

func (s *Scheduler) runRetention(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.RetentionAge)
	purged, err := s.retention.PurgeResolved(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("resolved alerts purged", zap.Int64("count", purged))
	}
}
