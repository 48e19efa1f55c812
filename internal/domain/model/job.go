package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further lifecycle transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo enforces the forward-only lifecycle:
// pending -> running -> completed|failed. Terminal states are sticky;
// the administrative requeue path re-enqueues at the broker level and
// never rewinds a record through this check.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

type JobType string

const (
	JobTypeChatQuery      JobType = "chat_query"
	JobTypeDocumentUpload JobType = "document_upload"
	JobTypeHealthCheck    JobType = "health_check"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeChatQuery, JobTypeDocumentUpload, JobTypeHealthCheck:
		return true
	}
	return false
}

// QueueName maps a job category to its dedicated broker queue, so a slow
// category cannot starve a fast one when workers are dedicated per queue.
func (t JobType) QueueName() string {
	switch t {
	case JobTypeChatQuery:
		return "chat"
	case JobTypeDocumentUpload:
		return "documents"
	default:
		return "default"
	}
}

// Timeout is the fixed per-category bound on handler runtime.
func (t JobType) Timeout() time.Duration {
	switch t {
	case JobTypeChatQuery:
		return 5 * time.Minute
	case JobTypeDocumentUpload:
		return 10 * time.Minute
	default:
		return 30 * time.Second
	}
}

// EstimatedWait is a static, category-specific hint returned at submission.
func (t JobType) EstimatedWait() string {
	switch t {
	case JobTypeChatQuery:
		return "30-60 seconds"
	case JobTypeDocumentUpload:
		return "1-3 minutes"
	default:
		return "5-10 seconds"
	}
}

func (t JobType) idPrefix() string {
	switch t {
	case JobTypeChatQuery:
		return "chat"
	case JobTypeDocumentUpload:
		return "doc"
	default:
		return "health"
	}
}

// NewJobID mints a caller-opaque id: category prefix, random suffix,
// submission timestamp. Uniqueness is ultimately enforced by the store.
func NewJobID(t JobType) string {
	suffix := uuid.New().String()
	return fmt.Sprintf("%s_%s_%d", t.idPrefix(), suffix[:8], time.Now().Unix())
}

// JobRecord is the persisted view of one submitted job.
type JobRecord struct {
	JobID          string          `json:"job_id"`
	Type           JobType         `json:"job_type"`
	Status         JobStatus       `json:"status"`
	Input          json.RawMessage `json:"input_data,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ProcessingTime *float64        `json:"processing_time_seconds,omitempty"`
}

func NewJobRecord(jobID string, t JobType, input json.RawMessage) *JobRecord {
	now := time.Now()
	return &JobRecord{
		JobID:     jobID,
		Type:      t,
		Status:    JobStatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Payloads carried in input_data, one variant per job category.

type ChatQueryPayload struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id,omitempty"`
	SubmittedAt int64  `json:"submitted_at"`
}

type DocumentUploadPayload struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	UserID      string `json:"user_id,omitempty"`
	SubmittedAt int64  `json:"submitted_at"`
}

type HealthCheckPayload struct {
	SubmittedAt int64 `json:"submitted_at"`
}

// Results stored on terminal completion, one variant per job category.

type SourceDocument struct {
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
	Page    string `json:"page,omitempty"`
}

type ChatQueryResult struct {
	Query   string           `json:"query"`
	Answer  string           `json:"answer"`
	Sources []SourceDocument `json:"source_documents,omitempty"`
}

type DocumentUploadResult struct {
	Filename     string `json:"filename"`
	Category     string `json:"category"`
	DocumentID   string `json:"document_id"`
	ChunksStored int    `json:"chunks_stored"`
}

// HealthCheckMessage is the fixed result body of a successful health check.
const HealthCheckMessage = "Queue system is working properly!"

type HealthCheckResult struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Envelope is the broker wire format. Only the job_type tag and the payload
// cross the process boundary; handlers are resolved on the worker side.
type Envelope struct {
	JobID      string          `json:"job_id"`
	Type       JobType         `json:"job_type"`
	Payload    json.RawMessage `json:"payload"`
	TimeoutMS  int64           `json:"timeout_ms"`
	EnqueuedAt int64           `json:"enqueued_at"`
}

func NewEnvelope(jobID string, t JobType, payload json.RawMessage) *Envelope {
	return &Envelope{
		JobID:      jobID,
		Type:       t,
		Payload:    payload,
		TimeoutMS:  t.Timeout().Milliseconds(),
		EnqueuedAt: time.Now().Unix(),
	}
}

func (e *Envelope) Timeout() time.Duration {
	if e.TimeoutMS <= 0 {
		return e.Type.Timeout()
	}
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

func (e *Envelope) Marshal() ([]byte, error) { return json.Marshal(e) }

func UnmarshalEnvelope(b []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &e, nil
}
