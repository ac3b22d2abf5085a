// Package workers contains background workers for the validator service.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper removes scratch files older than maxAge and reports how many it removed.
type Sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// JanitorConfig configures the scratch janitor.
type JanitorConfig struct {
	// Interval is the time between sweeps.
	// Default: 10 minutes.
	Interval time.Duration

	// MaxAge is the age after which a scratch file is considered abandoned.
	// Default: 1 hour.
	MaxAge time.Duration
}

// DefaultJanitorConfig returns the default configuration.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval: 10 * time.Minute,
		MaxAge:   time.Hour,
	}
}

// Janitor periodically removes scratch files left behind by calls that never
// reached their cleanup step, such as a process crash mid-validation.
type Janitor struct {
	sweeper Sweeper
	config  JanitorConfig
	logger  *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a new janitor worker.
func NewJanitor(sweeper Sweeper, config JanitorConfig, logger *slog.Logger) *Janitor {
	defaults := DefaultJanitorConfig()
	if config.Interval == 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxAge == 0 {
		config.MaxAge = defaults.MaxAge
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		sweeper: sweeper,
		config:  config,
		logger:  logger.With("component", "janitor"),
	}
}

// Start begins the janitor background goroutine.
func (j *Janitor) Start() {
	j.ctx, j.cancel = context.WithCancel(context.Background())

	j.wg.Add(1)
	go j.run()

	j.logger.Info("janitor started",
		"interval", j.config.Interval,
		"max_age", j.config.MaxAge,
	)
}

// Stop stops the janitor and waits for an in-progress sweep to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
	j.logger.Info("janitor stopped")
}

func (j *Janitor) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.SweepNow()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.SweepNow()
		}
	}
}

// SweepNow runs one sweep and returns the number of files removed.
func (j *Janitor) SweepNow() int {
	removed, err := j.sweeper.Sweep(j.config.MaxAge)
	if err != nil {
		j.logger.Error("scratch sweep failed", "error", err)
		return 0
	}

	if removed > 0 {
		janitorRemovals.Add(float64(removed))
		j.logger.Info("removed abandoned scratch files", "count", removed)
	} else {
		j.logger.Debug("no abandoned scratch files")
	}
	return removed
}
