package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/queue"
	"legal-ai-jobs/internal/domain/ports/repository"
	"legal-ai-jobs/internal/infra/metrics"
)

// Loop is the worker process core: it pulls envelopes off the broker in
// queue-priority order and runs them one at a time. Concurrency comes from
// running more worker processes, not from threads inside one.
type Loop struct {
	broker   queue.Broker
	jobs     repository.JobRepository
	registry *Registry
	log      *zerolog.Logger
}

func NewLoop(broker queue.Broker, jobs repository.JobRepository, registry *Registry, logger *zerolog.Logger) *Loop {
	wLog := logger.With().Str("component", "Worker").Logger()
	return &Loop{broker: broker, jobs: jobs, registry: registry, log: &wLog}
}

// Run blocks until ctx is cancelled. A worker with no queues to listen on is
// a deployment error and fails fast; everything that goes wrong with an
// individual job is absorbed so one bad job never takes the loop down.
func (l *Loop) Run(ctx context.Context) error {
	names := l.broker.QueueNames()
	if len(names) == 0 {
		return errors.New("worker started with no queues to listen on")
	}
	l.log.Info().Strs("queues", names).Msg("worker loop started")

	for {
		if ctx.Err() != nil {
			l.log.Info().Msg("worker loop stopping")
			return nil
		}
		env, q, err := l.broker.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // poll window elapsed with nothing queued
			}
			if ctx.Err() != nil {
				l.log.Info().Msg("worker loop stopping")
				return nil
			}
			l.log.Error().Err(err).Msg("dequeue failed")
			// Broker outage; back off instead of spinning.
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		l.processOne(ctx, env, q)
	}
}

func (l *Loop) processOne(ctx context.Context, env *model.Envelope, q queue.Queue) {
	log := l.log.With().Str("job_id", env.JobID).Str("job_type", string(env.Type)).
		Str("queue", q.Name()).Logger()
	start := time.Now()

	// The record may legitimately be missing (submission proceeded while the
	// store was down); the job still runs.
	if err := l.jobs.UpdateStatus(ctx, env.JobID, model.JobStatusRunning, nil, ""); err != nil {
		log.Warn().Err(err).Msg("could not mark record running")
	}
	if err := q.MarkStarted(ctx, env); err != nil {
		log.Warn().Err(err).Msg("could not register job as started")
	}

	result, err := l.invoke(ctx, env)
	elapsed := time.Since(start)

	// Terminal bookkeeping happens even when ctx was cancelled mid-job.
	finCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err != nil {
		if upErr := l.jobs.UpdateStatus(finCtx, env.JobID, model.JobStatusFailed, nil, err.Error()); upErr != nil {
			log.Warn().Err(upErr).Msg("could not mark record failed")
		}
		if mErr := q.MarkFailed(finCtx, env); mErr != nil {
			log.Warn().Err(mErr).Msg("could not move job to failed registry")
		}
		metrics.IncJobProcessed(string(env.Type), "failed")
		metrics.ObserveJobDuration(string(env.Type), elapsed.Seconds())
		log.Error().Err(err).Dur("duration_ms", elapsed).Msg("job failed")
		return
	}

	body, mErr := json.Marshal(result)
	if mErr != nil {
		// A result the store cannot hold is a handler bug; the job still
		// completed from the caller's perspective.
		log.Error().Err(mErr).Msg("result not serializable")
		body = nil
	}
	if upErr := l.jobs.UpdateStatus(finCtx, env.JobID, model.JobStatusCompleted, body, ""); upErr != nil {
		log.Warn().Err(upErr).Msg("could not mark record completed")
	}
	if fErr := q.MarkFinished(finCtx, env); fErr != nil {
		log.Warn().Err(fErr).Msg("could not move job to finished registry")
	}
	metrics.IncJobProcessed(string(env.Type), "completed")
	metrics.ObserveJobDuration(string(env.Type), elapsed.Seconds())
	log.Info().Dur("duration_ms", elapsed).Msg("job completed")
}

// invoke runs the handler under the category timeout with panic containment.
func (l *Loop) invoke(ctx context.Context, env *model.Envelope) (result any, err error) {
	h, ok := l.registry.Resolve(env.Type)
	if !ok {
		return nil, fmt.Errorf("%w: no handler for job type %q", domain.ErrInvalidArgument, env.Type)
	}
	hctx, cancel := context.WithTimeout(ctx, env.Timeout())
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return h(hctx, env.JobID, env.Payload)
}
