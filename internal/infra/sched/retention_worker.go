package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/usecase"
)

// RetentionWorker periodically sweeps old terminal job records via the
// maintenance use case, so the jobs table does not grow without bound
// between manual cleanup calls.
type RetentionWorker struct {
	interval    time.Duration
	days        int
	maintenance usecase.MaintenanceUseCase
	log         *zerolog.Logger
}

func NewRetentionWorker(interval time.Duration, days int, maintenance usecase.MaintenanceUseCase, logger *zerolog.Logger) *RetentionWorker {
	retLog := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{
		interval:    interval,
		days:        days,
		maintenance: maintenance,
		log:         &retLog,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Int("days", w.days).Msg("starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			res, err := w.maintenance.CleanupOldJobs(ctx, w.days)
			if err != nil {
				w.log.Error().Err(err).Msg("retention sweep failed")
				continue
			}
			if res.DeletedJobs > 0 {
				w.log.Info().Int("deleted", res.DeletedJobs).Int("days", res.DaysThreshold).
					Msg("old job records swept")
			}
		}
	}
}
