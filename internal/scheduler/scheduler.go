package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/ports"
)

// DefaultSpec runs every ten minutes, in step with the bar cache TTL.
const DefaultSpec = "0 */10 * * * *"

// Refresher overwrites a cached bar series with a fresh upstream fetch.
type Refresher interface {
	Refresh(ctx context.Context, symbol string, visibleDays int) (domain.BarSeries, error)
}

// Purger drops expired cache entries. Implemented by caches without native expiry.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler keeps model services warm and the bar cache fresh.
type Scheduler struct {
	cron      *cron.Cron
	ctx       context.Context
	logger    ports.Logger
	predictor ports.Predictor // Optional
	refresher Refresher       // Optional
	purger    Purger          // Optional
	coins     []string
	ranges    []int
}

// Config holds the scheduler dependencies.
type Config struct {
	Logger    ports.Logger
	Predictor ports.Predictor
	Refresher Refresher
	Purger    Purger
	Coins     []string
	Ranges    []int
}

// New creates a Scheduler; jobs run with ctx.
func New(ctx context.Context, cfg Config) (*Scheduler, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for scheduler: %w", ports.ErrConfigurationError)
	}
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		ctx:       ctx,
		logger:    cfg.Logger,
		predictor: cfg.Predictor,
		refresher: cfg.Refresher,
		purger:    cfg.Purger,
		coins:     cfg.Coins,
		ranges:    cfg.Ranges,
	}, nil
}

// Register adds the prewarm and refresh job on spec (six-field, with seconds).
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register prewarm job %q: %w: %w", spec, ports.ErrConfigurationError, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "Scheduler started", map[string]interface{}{"jobs": len(s.cron.Entries())})
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info(s.ctx, "Scheduler stopped")
}

// RunNow executes one prewarm and refresh pass immediately.
func (s *Scheduler) RunNow() {
	if s.ctx.Err() != nil {
		return
	}

	ready, refreshed, failed := 0, 0, 0
	for _, coin := range s.coins {
		if s.predictor != nil && s.predictor.Prewarm(s.ctx, coin) {
			ready++
		}
		if s.refresher == nil {
			continue
		}
		for _, days := range s.ranges {
			if _, err := s.refresher.Refresh(s.ctx, coin, days); err != nil {
				failed++
				s.logger.Warn(s.ctx, "Bar cache refresh failed", map[string]interface{}{
					"coin":  coin,
					"days":  days,
					"error": err.Error(),
				})
				continue
			}
			refreshed++
		}
	}

	var purged int64
	if s.purger != nil {
		n, err := s.purger.PurgeExpired(s.ctx)
		if err != nil {
			s.logger.Error(s.ctx, err, "Bar cache purge failed")
		}
		purged = n
	}

	s.logger.Info(s.ctx, "Prewarm pass complete", map[string]interface{}{
		"services_ready": ready,
		"refreshed":      refreshed,
		"failed":         failed,
		"purged":         purged,
	})
}
