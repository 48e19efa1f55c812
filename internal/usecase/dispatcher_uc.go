package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/queue"
	"legal-ai-jobs/internal/domain/ports/repository"
	"legal-ai-jobs/internal/infra/logging"
	"legal-ai-jobs/internal/infra/metrics"
)

// SubmitResult is the structured reply for every submission operation.
type SubmitResult struct {
	JobID             string `json:"job_id"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	EstimatedWaitTime string `json:"estimated_wait_time"`
}

// JobList is the reply of the recent-jobs listing.
type JobList struct {
	Jobs  []*model.JobRecord `json:"jobs"`
	Count int                `json:"count"`
}

// Compile-time check
var _ DispatcherUseCase = (*dispatcherUC)(nil)

// DispatcherUseCase submits jobs and reads their tracked state. All failures
// come back as errors wrapping domain sentinels; nothing panics across this
// boundary.
type DispatcherUseCase interface {
	SubmitChatQuery(ctx context.Context, query, userID string) (*SubmitResult, error)
	SubmitDocumentUpload(ctx context.Context, content, filename, userID string) (*SubmitResult, error)
	SubmitHealthCheck(ctx context.Context) (*SubmitResult, error)
	GetJobStatus(ctx context.Context, jobID string) (*model.JobRecord, error)
	GetRecentJobs(ctx context.Context, limit int) (*JobList, error)
}

type dispatcherUC struct {
	jobs   repository.JobRepository
	broker queue.Broker
	log    *zerolog.Logger
}

func NewDispatcherUseCase(jobs repository.JobRepository, broker queue.Broker, logger *zerolog.Logger) *dispatcherUC {
	dispLog := logger.With().Str("component", "Dispatcher").Logger()
	return &dispatcherUC{jobs: jobs, broker: broker, log: &dispLog}
}

func (d *dispatcherUC) SubmitChatQuery(ctx context.Context, query, userID string) (*SubmitResult, error) {
	defer logging.TraceDuration(d.log, "Dispatcher.SubmitChatQuery")()
	if userID != "" {
		ctx = logging.WithUserID(ctx, userID)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		// Rejected before any record exists.
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	payload, err := json.Marshal(model.ChatQueryPayload{
		Query:       query,
		UserID:      userID,
		SubmittedAt: time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}
	return d.submit(ctx, model.JobTypeChatQuery, payload, "Chat query submitted for processing")
}

func (d *dispatcherUC) SubmitDocumentUpload(ctx context.Context, content, filename, userID string) (*SubmitResult, error) {
	defer logging.TraceDuration(d.log, "Dispatcher.SubmitDocumentUpload")()
	if userID != "" {
		ctx = logging.WithUserID(ctx, userID)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty document content", domain.ErrInvalidArgument)
	}
	if filename == "" {
		filename = "unknown.txt"
	}
	payload, err := json.Marshal(model.DocumentUploadPayload{
		Content:     content,
		Filename:    filename,
		UserID:      userID,
		SubmittedAt: time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Document %q submitted for processing", filename)
	return d.submit(ctx, model.JobTypeDocumentUpload, payload, msg)
}

func (d *dispatcherUC) SubmitHealthCheck(ctx context.Context) (*SubmitResult, error) {
	defer logging.TraceDuration(d.log, "Dispatcher.SubmitHealthCheck")()
	payload, err := json.Marshal(model.HealthCheckPayload{SubmittedAt: time.Now().Unix()})
	if err != nil {
		return nil, err
	}
	return d.submit(ctx, model.JobTypeHealthCheck, payload, "Health check submitted")
}

// submit is the shared submission pattern: mint id, create the pending
// record, resolve the category queue, enqueue with the category timeout.
func (d *dispatcherUC) submit(ctx context.Context, t model.JobType, payload json.RawMessage, message string) (*SubmitResult, error) {
	jobID := model.NewJobID(t)
	ctx = logging.WithJobID(ctx, jobID)
	ctx = logging.WithQueue(ctx, t.QueueName())
	log := logging.With(ctx, d.log).With().Str("job_type", string(t)).Logger()

	rec := model.NewJobRecord(jobID, t, payload)
	if err := d.jobs.Create(ctx, rec); err != nil {
		if err == domain.ErrAlreadyExists {
			// The random suffix collided with an existing record; surfaced
			// rather than silently overwritten.
			metrics.IncJobSubmitted(string(t), "failed")
			return nil, fmt.Errorf("job id collision for %s: %w", jobID, err)
		}
		// Tracking degrades gracefully; the job still runs.
		log.Warn().Err(err).Msg("job record not persisted, submission proceeds untracked")
	}

	q, err := d.broker.GetQueue(t.QueueName())
	if err != nil {
		d.reconcileFailed(jobID, fmt.Sprintf("queue %q not available", t.QueueName()))
		metrics.IncJobSubmitted(string(t), "failed")
		return nil, fmt.Errorf("submit %s: %w", t, err)
	}

	env := model.NewEnvelope(jobID, t, payload)
	if err := q.Enqueue(ctx, env); err != nil {
		// The record was already created; leaving it pending forever would
		// look like a live job to pollers, so it is settled as failed here.
		d.reconcileFailed(jobID, fmt.Sprintf("enqueue failed: %v", err))
		metrics.IncJobSubmitted(string(t), "failed")
		return nil, fmt.Errorf("submit %s: %w", t, err)
	}

	log.Info().Str("queue", t.QueueName()).Msg("job submitted")
	metrics.IncJobSubmitted(string(t), "submitted")

	return &SubmitResult{
		JobID:             jobID,
		Status:            "submitted",
		Message:           message,
		EstimatedWaitTime: t.EstimatedWait(),
	}, nil
}

func (d *dispatcherUC) reconcileFailed(jobID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.jobs.UpdateStatus(ctx, jobID, model.JobStatusFailed, nil, reason); err != nil &&
		!errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTransition) {
		d.log.Error().Err(err).Str("job_id", jobID).Msg("could not reconcile record after failed enqueue")
	}
}

func (d *dispatcherUC) GetJobStatus(ctx context.Context, jobID string) (*model.JobRecord, error) {
	rec, err := d.jobs.FindByID(ctx, jobID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return rec, nil
}

func (d *dispatcherUC) GetRecentJobs(ctx context.Context, limit int) (*JobList, error) {
	jobs, err := d.jobs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	return &JobList{Jobs: jobs, Count: len(jobs)}, nil
}
