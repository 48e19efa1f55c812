package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo persists job records in the jobs table. Concurrency control is the
// primary-key constraint on job_id plus last-write-wins updates; the status
// guard in UpdateStatus keeps terminal records terminal regardless of write
// order.
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Create(ctx context.Context, rec *model.JobRecord) error {
	const q = `
INSERT INTO jobs (job_id, job_type, status, input_data, result, error, created_at, updated_at, processing_time)
VALUES ($1,$2,$3,$4,NULL,'',$5,$6,NULL)
ON CONFLICT (job_id) DO NOTHING;`

	tag, err := r.pool.Exec(ctx, q, rec.JobID, rec.Type, rec.Status, rec.Input, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job %s: %w", rec.JobID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, errMsg string) error {
	// Terminal rows are excluded by the WHERE clause, so a late or duplicate
	// write can never rewind a finished job. processing_time is computed once,
	// at the terminal transition.
	const q = `
UPDATE jobs SET
  status = $2,
  result = COALESCE($3, result),
  error  = CASE WHEN $4 <> '' THEN $4 ELSE error END,
  updated_at = $5,
  processing_time = CASE WHEN $2 IN ('completed','failed')
                         THEN EXTRACT(EPOCH FROM ($5::timestamptz - created_at))
                         ELSE processing_time END
WHERE job_id = $1
  AND status NOT IN ('completed','failed');`

	tag, err := r.pool.Exec(ctx, q, jobID, status, result, errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE job_id=$1);`, jobID).Scan(&exists); err != nil {
			return domain.ErrReadDatabaseRow
		}
		if exists {
			// The row is already terminal and the guard held.
			return domain.ErrInvalidTransition
		}
		return domain.ErrNotFound
	}
	return nil
}

const jobColumns = `job_id, job_type, status, input_data, result, error, created_at, updated_at, processing_time`

func scanJob(row pgx.Row) (*model.JobRecord, error) {
	var rec model.JobRecord
	if err := row.Scan(&rec.JobID, &rec.Type, &rec.Status, &rec.Input, &rec.Result,
		&rec.Error, &rec.CreatedAt, &rec.UpdatedAt, &rec.ProcessingTime); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &rec, nil
}

func (r *JobRepo) FindByID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id=$1;`, jobID)
	return scanJob(row)
}

func (r *JobRepo) list(ctx context.Context, q string, args ...interface{}) ([]*model.JobRecord, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MaxListLimit caps listing endpoints server-side.
const MaxListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func (r *JobRepo) ListRecent(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	return r.list(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1;`,
		clampLimit(limit))
}

func (r *JobRepo) ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.JobRecord, error) {
	return r.list(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status=$1 ORDER BY created_at DESC LIMIT $2;`,
		status, clampLimit(limit))
}

func (r *JobRepo) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.JobStatus]int)
	for rows.Next() {
		var s model.JobStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[s] = n
	}
	return out, rows.Err()
}

func (r *JobRepo) DeleteTerminalOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM jobs WHERE status IN ('completed','failed') AND created_at < $1;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *JobRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}
