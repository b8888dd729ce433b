package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reclaimer releases reservations held by sessions that never started.
type Reclaimer interface {
	ReclaimAbandoned(ctx context.Context) (int, error)
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// ReaperConfig contains configuration for the reaper job
type ReaperConfig struct {
	Schedule string        // cron expression, e.g. "@every 1m"
	Timeout  time.Duration // upper bound for one run
}

// ReaperJob periodically returns abandoned reservations to the ledger and
// sweeps the scoring cache.
type ReaperJob struct {
	reclaimer Reclaimer
	sweeper   Sweeper
	config    ReaperConfig
	cron      *cron.Cron
	logger    *zap.Logger
}

func NewReaperJob(reclaimer Reclaimer, sweeper Sweeper, config ReaperConfig, logger *zap.Logger) *ReaperJob {
	if config.Schedule == "" {
		config.Schedule = "@every 1m"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &ReaperJob{
		reclaimer: reclaimer,
		sweeper:   sweeper,
		config:    config,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger,
	}
}

// Start schedules the job.
func (j *ReaperJob) Start() error {
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.config.Timeout)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Error("Reservation reaper run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reaper job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("Reservation reaper started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop halts scheduling and waits for a running job to return.
func (j *ReaperJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Reservation reaper stopped")
}

// RunOnce performs a single pass and returns the number of reclaimed reservations.
func (j *ReaperJob) RunOnce(ctx context.Context) (int, error) {
	if j.sweeper != nil {
		if n := j.sweeper.Sweep(); n > 0 {
			j.logger.Debug("Swept scoring cache", zap.Int("entries", n))
		}
	}

	reclaimed, err := j.reclaimer.ReclaimAbandoned(ctx)
	if err != nil {
		return reclaimed, fmt.Errorf("reclaim abandoned reservations: %w", err)
	}
	if reclaimed > 0 {
		j.logger.Info("Reclaimed abandoned reservations", zap.Int("count", reclaimed))
	}
	return reclaimed, nil
}
