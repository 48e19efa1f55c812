package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/queue"
	red "legal-ai-jobs/internal/infra/redis"
)

const (
	keyPrefix    = "jobs:queue:"
	jobKeyPrefix = "jobs:job:"

	// finished/failed registries are capped so they cannot grow unbounded.
	registryCap = 1000
)

var _ queue.Queue = (*redisQueue)(nil)

// redisQueue is one named durable queue over Redis lists. Pending entries are
// full envelopes; the started/finished registries hold job ids, the failed
// registry holds envelopes so RequeueAllFailed can move them back verbatim.
type redisQueue struct {
	name string
	cli  red.Client
}

func (q *redisQueue) Name() string { return q.name }

func (q *redisQueue) pendingKey() string  { return keyPrefix + q.name }
func (q *redisQueue) startedKey() string  { return keyPrefix + q.name + ":started" }
func (q *redisQueue) finishedKey() string { return keyPrefix + q.name + ":finished" }
func (q *redisQueue) failedKey() string   { return keyPrefix + q.name + ":failed" }

func (q *redisQueue) Enqueue(ctx context.Context, env *model.Envelope) error {
	b, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := q.cli.LPush(ctx, q.pendingKey(), string(b)); err != nil {
		return fmt.Errorf("enqueue %s: %w", q.name, err)
	}
	return nil
}

func (q *redisQueue) Length(ctx context.Context) (int64, error) {
	return q.cli.LLen(ctx, q.pendingKey())
}

func (q *redisQueue) FailedCount(ctx context.Context) (int64, error) {
	return q.cli.LLen(ctx, q.failedKey())
}

func (q *redisQueue) FinishedCount(ctx context.Context) (int64, error) {
	return q.cli.LLen(ctx, q.finishedKey())
}

func (q *redisQueue) StartedCount(ctx context.Context) (int64, error) {
	return q.cli.LLen(ctx, q.startedKey())
}

func (q *redisQueue) Drain(ctx context.Context) error {
	return q.cli.Del(ctx, q.pendingKey())
}

func (q *redisQueue) RequeueAllFailed(ctx context.Context) (int64, error) {
	var moved int64
	for {
		_, err := q.cli.RPopLPush(ctx, q.failedKey(), q.pendingKey())
		if err != nil {
			if errors.Is(err, red.Nil) {
				return moved, nil
			}
			return moved, fmt.Errorf("requeue failed jobs on %s: %w", q.name, err)
		}
		moved++
	}
}

func (q *redisQueue) MarkStarted(ctx context.Context, env *model.Envelope) error {
	return q.cli.LPush(ctx, q.startedKey(), env.JobID)
}

func (q *redisQueue) MarkFinished(ctx context.Context, env *model.Envelope) error {
	if err := q.cli.LRem(ctx, q.startedKey(), 0, env.JobID); err != nil {
		return err
	}
	if err := q.cli.LPush(ctx, q.finishedKey(), env.JobID); err != nil {
		return err
	}
	return q.cli.LTrim(ctx, q.finishedKey(), 0, registryCap-1)
}

func (q *redisQueue) MarkFailed(ctx context.Context, env *model.Envelope) error {
	if err := q.cli.LRem(ctx, q.startedKey(), 0, env.JobID); err != nil {
		return err
	}
	b, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := q.cli.LPush(ctx, q.failedKey(), string(b)); err != nil {
		return err
	}
	return q.cli.LTrim(ctx, q.failedKey(), 0, registryCap-1)
}

var _ queue.Broker = (*Broker)(nil)

// Broker hands out named queues backed by one Redis connection. Registration
// order doubles as the worker's dequeue priority.
type Broker struct {
	cli    red.Client
	names  []string
	queues map[string]*redisQueue
	poll   time.Duration
	log    *zerolog.Logger
}

func NewBroker(cli red.Client, pollTimeout time.Duration, logger *zerolog.Logger, names ...string) *Broker {
	if len(names) == 0 {
		names = []string{model.JobTypeChatQuery.QueueName(), model.JobTypeDocumentUpload.QueueName(), model.JobTypeHealthCheck.QueueName()}
	}
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	brokerLog := logger.With().Str("component", "Broker").Logger()
	b := &Broker{
		cli:    cli,
		names:  names,
		queues: make(map[string]*redisQueue, len(names)),
		poll:   pollTimeout,
		log:    &brokerLog,
	}
	for _, n := range names {
		b.queues[n] = &redisQueue{name: n, cli: cli}
	}
	return b
}

func (b *Broker) GetQueue(name string) (queue.Queue, error) {
	q, ok := b.queues[name]
	if !ok {
		return nil, domain.ErrQueueUnavailable
	}
	return q, nil
}

func (b *Broker) QueueNames() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// IsConnected is a live probe, not a cached flag.
func (b *Broker) IsConnected(ctx context.Context) bool {
	return b.cli.Ping(ctx) == nil
}

// Dequeue blocks up to the poll window for the next envelope. BRPOP scans
// keys in the order given, which makes registration order the priority order
// for a shared worker.
func (b *Broker) Dequeue(ctx context.Context) (*model.Envelope, queue.Queue, error) {
	keys := make([]string, len(b.names))
	for i, n := range b.names {
		keys[i] = keyPrefix + n
	}
	res, err := b.cli.BRPop(ctx, b.poll, keys...)
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("dequeue: %w", err)
	}
	if len(res) != 2 {
		return nil, nil, fmt.Errorf("dequeue: unexpected reply of %d elements", len(res))
	}
	name := res[0][len(keyPrefix):]
	q, ok := b.queues[name]
	if !ok {
		return nil, nil, fmt.Errorf("dequeue: reply for unregistered queue %q", name)
	}
	env, err := model.UnmarshalEnvelope([]byte(res[1]))
	if err != nil {
		b.log.Error().Err(err).Str("queue", name).Msg("corrupt envelope dropped")
		return nil, nil, err
	}
	return env, q, nil
}

// SweepJobKeys removes stray keys in the per-job namespace. Used by the
// clear-failed maintenance reset.
func (b *Broker) SweepJobKeys(ctx context.Context) (int64, error) {
	keys, err := b.cli.Keys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := b.cli.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

func (b *Broker) Close() error { return b.cli.Close() }
