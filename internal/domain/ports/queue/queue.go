package queue

import (
	"context"

	"legal-ai-jobs/internal/domain/model"
)

// Counts is a point-in-time snapshot of one queue's registries.
type Counts struct {
	Pending  int64 `json:"pending_jobs"`
	Failed   int64 `json:"failed_jobs"`
	Finished int64 `json:"finished_jobs"`
	Started  int64 `json:"started_jobs"`
}

// Queue is one named, durable channel of pending job envelopes.
type Queue interface {
	Name() string

	// Enqueue durably persists the envelope in the broker before returning,
	// so a worker in a separate process (possibly started later) can pick
	// it up.
	Enqueue(ctx context.Context, env *model.Envelope) error

	Length(ctx context.Context) (int64, error)
	FailedCount(ctx context.Context) (int64, error)
	FinishedCount(ctx context.Context) (int64, error)
	StartedCount(ctx context.Context) (int64, error)

	// Drain discards all pending entries.
	Drain(ctx context.Context) error

	// RequeueAllFailed moves every broker-level failed entry back to pending
	// and returns the number moved. This is the administrative recovery
	// path, not a lifecycle edge.
	RequeueAllFailed(ctx context.Context) (int64, error)

	// Registry bookkeeping driven by the worker loop.
	MarkStarted(ctx context.Context, env *model.Envelope) error
	MarkFinished(ctx context.Context, env *model.Envelope) error
	MarkFailed(ctx context.Context, env *model.Envelope) error
}

// Broker manages the connection to the queue backing store and hands out
// named queues. Construction must not fail the calling process; callers
// degrade to "unavailable" when the broker cannot be reached.
type Broker interface {
	// GetQueue returns the named queue, or domain.ErrQueueUnavailable when
	// the broker connection is down.
	GetQueue(name string) (Queue, error)

	// QueueNames returns registered queue names in registration order; the
	// order is the worker's dequeue priority.
	QueueNames() []string

	// IsConnected performs a live liveness probe.
	IsConnected(ctx context.Context) bool

	// Dequeue blocks up to the given timeout for the next envelope across
	// all registered queues, in priority order. Returns domain.ErrNotFound
	// when nothing arrived within the window.
	Dequeue(ctx context.Context) (*model.Envelope, Queue, error)

	// SweepJobKeys deletes stray broker keys in the job namespace and
	// returns the number removed.
	SweepJobKeys(ctx context.Context) (int64, error)

	Close() error
}
