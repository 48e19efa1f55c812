package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/queue"
	"legal-ai-jobs/internal/domain/ports/repository"
	"legal-ai-jobs/internal/infra/logging"
	"legal-ai-jobs/internal/infra/metrics"
)

// Retention policy bounds for job cleanup, in days.
const (
	MinRetentionDays = 1
	MaxRetentionDays = 30
)

// QueueHealthEntry is one queue's slice of the health snapshot.
type QueueHealthEntry struct {
	queue.Counts
	Status string `json:"status"` // 'healthy' | 'error'
	Error  string `json:"error,omitempty"`
}

type HealthSnapshot struct {
	BrokerConnected bool                        `json:"broker_connected"`
	StoreConnected  bool                        `json:"store_connected"`
	Queues          map[string]QueueHealthEntry `json:"queues"`
	OverallStatus   string                      `json:"overall_status"` // 'healthy' | 'unhealthy'
	Timestamp       int64                       `json:"timestamp"`
}

type JobStats struct {
	ByStatus map[model.JobStatus]int `json:"by_status"`
	Total    int                     `json:"total"`
}

type CleanupResult struct {
	DeletedJobs   int    `json:"deleted_jobs"`
	DaysThreshold int    `json:"days_threshold"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type ClearedQueue struct {
	Queue             string `json:"queue"`
	FailedJobsCleared int64  `json:"failed_jobs_cleared"`
	Status            string `json:"status"`
}

type ClearFailedResult struct {
	ClearedQueues []ClearedQueue `json:"cleared_queues"`
	ClearedKeys   int64          `json:"cleared_keys"`
	Errors        []string       `json:"errors"`
}

// Compile-time check
var _ MaintenanceUseCase = (*maintenanceUC)(nil)

// MaintenanceUseCase bundles the administrative operations: health snapshot,
// statistics, retention cleanup and the failed-job reset.
type MaintenanceUseCase interface {
	QueueHealth(ctx context.Context) *HealthSnapshot
	JobStats(ctx context.Context) (*JobStats, error)
	CleanupOldJobs(ctx context.Context, days int) (*CleanupResult, error)
	ClearFailedJobs(ctx context.Context) *ClearFailedResult
}

type maintenanceUC struct {
	jobs   repository.JobRepository
	broker queue.Broker
	log    *zerolog.Logger
}

func NewMaintenanceUseCase(jobs repository.JobRepository, broker queue.Broker, logger *zerolog.Logger) *maintenanceUC {
	mLog := logger.With().Str("component", "Maintenance").Logger()
	return &maintenanceUC{jobs: jobs, broker: broker, log: &mLog}
}

// QueueHealth never returns an error: connectivity problems are part of the
// snapshot, not a failure of taking it.
func (m *maintenanceUC) QueueHealth(ctx context.Context) *HealthSnapshot {
	defer logging.TraceDuration(m.log, "Maintenance.QueueHealth")()
	snap := &HealthSnapshot{
		BrokerConnected: m.broker.IsConnected(ctx),
		StoreConnected:  m.jobs.Ping(ctx) == nil,
		Queues:          map[string]QueueHealthEntry{},
		Timestamp:       time.Now().Unix(),
	}
	snap.OverallStatus = "unhealthy"
	if snap.BrokerConnected {
		snap.OverallStatus = "healthy"
		for _, name := range m.broker.QueueNames() {
			snap.Queues[name] = m.queueEntry(ctx, name)
		}
	}
	return snap
}

func (m *maintenanceUC) queueEntry(ctx context.Context, name string) QueueHealthEntry {
	q, err := m.broker.GetQueue(name)
	if err != nil {
		return QueueHealthEntry{Status: "error", Error: err.Error()}
	}
	var entry QueueHealthEntry
	entry.Status = "healthy"
	if entry.Pending, err = q.Length(ctx); err == nil {
		metrics.SetQueueDepth(name, entry.Pending)
		if entry.Failed, err = q.FailedCount(ctx); err == nil {
			if entry.Finished, err = q.FinishedCount(ctx); err == nil {
				entry.Started, err = q.StartedCount(ctx)
			}
		}
	}
	if err != nil {
		return QueueHealthEntry{Status: "error", Error: err.Error()}
	}
	return entry
}

func (m *maintenanceUC) JobStats(ctx context.Context) (*JobStats, error) {
	defer logging.TraceDuration(m.log, "Maintenance.JobStats")()
	counts, err := m.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &JobStats{ByStatus: counts, Total: total}, nil
}

func (m *maintenanceUC) CleanupOldJobs(ctx context.Context, days int) (*CleanupResult, error) {
	defer logging.TraceDuration(m.log, "Maintenance.CleanupOldJobs")()
	if days < MinRetentionDays {
		days = MinRetentionDays
	}
	if days > MaxRetentionDays {
		days = MaxRetentionDays
	}
	deleted, err := m.jobs.DeleteTerminalOlderThan(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("cleanup old jobs: %w", err)
	}
	m.log.Info().Int("deleted", deleted).Int("days", days).Msg("old jobs cleaned up")
	return &CleanupResult{
		DeletedJobs:   deleted,
		DaysThreshold: days,
		Status:        "success",
		Message:       fmt.Sprintf("Cleaned up %d old jobs", deleted),
	}, nil
}

// ClearFailedJobs requeues all failed broker entries and drains the pending
// lists (full queue reset), continuing past individual queue failures, then
// sweeps stray job-namespace keys.
func (m *maintenanceUC) ClearFailedJobs(ctx context.Context) *ClearFailedResult {
	defer logging.TraceDuration(m.log, "Maintenance.ClearFailedJobs")()
	res := &ClearFailedResult{}
	if !m.broker.IsConnected(ctx) {
		res.Errors = append(res.Errors, "broker not available")
		return res
	}

	for _, name := range m.broker.QueueNames() {
		q, err := m.broker.GetQueue(name)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("queue %s: %v", name, err))
			continue
		}
		moved, err := q.RequeueAllFailed(ctx)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("requeue %s: %v", name, err))
			continue
		}
		if err := q.Drain(ctx); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("drain %s: %v", name, err))
			continue
		}
		res.ClearedQueues = append(res.ClearedQueues, ClearedQueue{
			Queue:             name,
			FailedJobsCleared: moved,
			Status:            "cleared",
		})
	}

	swept, err := m.broker.SweepJobKeys(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("sweep job keys: %v", err))
	}
	res.ClearedKeys = swept

	m.log.Info().Int("queues", len(res.ClearedQueues)).Int64("keys", swept).
		Int("errors", len(res.Errors)).Msg("failed jobs cleared")
	return res
}
