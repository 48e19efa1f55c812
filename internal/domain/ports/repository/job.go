package repository

import (
	"context"
	"encoding/json"

	"legal-ai-jobs/internal/domain/model"
)

// JobRepository is the port for the persistent job record store.
//
// The store is shared by arbitrarily many submission and worker processes;
// the unique constraint on job_id and last-write-wins updates are the only
// concurrency control.
type JobRepository interface {
	// Create inserts a new pending record. A duplicate job_id returns
	// domain.ErrAlreadyExists; an in-flight record is never overwritten.
	Create(ctx context.Context, rec *model.JobRecord) error

	// UpdateStatus moves a record along its lifecycle. Terminal statuses set
	// processing_time = updated_at - created_at. Updates that would move a
	// record out of a terminal state are ignored by the store.
	UpdateStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, errMsg string) error

	FindByID(ctx context.Context, jobID string) (*model.JobRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*model.JobRecord, error)
	ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.JobRecord, error)

	// CountByStatus returns status -> count for all records.
	CountByStatus(ctx context.Context) (map[model.JobStatus]int, error)

	// DeleteTerminalOlderThan removes completed/failed records created more
	// than the given number of days ago and returns the count deleted.
	DeleteTerminalOlderThan(ctx context.Context, days int) (int, error)

	// Ping reports live store connectivity.
	Ping(ctx context.Context) error
}
