package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/queue"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- in-memory job repository ----

type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.JobRecord

	errCreate error
	errPing   error
	errCount  error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: map[string]*model.JobRecord{}}
}

func (m *memJobRepo) Create(ctx context.Context, rec *model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCreate != nil {
		return m.errCreate
	}
	if _, ok := m.byID[rec.JobID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *rec
	m.byID[rec.JobID] = &cp
	return nil
}

func (m *memJobRepo) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status.Terminal() {
		return domain.ErrInvalidTransition
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	if result != nil {
		rec.Result = result
	}
	if errMsg != "" {
		rec.Error = errMsg
	}
	if status.Terminal() {
		pt := rec.UpdatedAt.Sub(rec.CreatedAt).Seconds()
		rec.ProcessingTime = &pt
	}
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memJobRepo) ListRecent(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	var out []*model.JobRecord
	for _, rec := range m.byID {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.JobRecord, error) {
	all, _ := m.ListRecent(ctx, limit)
	var out []*model.JobRecord
	for _, rec := range all {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memJobRepo) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCount != nil {
		return nil, m.errCount
	}
	out := map[model.JobStatus]int{}
	for _, rec := range m.byID {
		out[rec.Status]++
	}
	return out, nil
}

func (m *memJobRepo) DeleteTerminalOlderThan(ctx context.Context, days int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	n := 0
	for id, rec := range m.byID {
		if rec.Status.Terminal() && rec.CreatedAt.Before(cutoff) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) Ping(ctx context.Context) error { return m.errPing }

// ---- fake broker/queues ----

type fakeQueue struct {
	mu       sync.Mutex
	name     string
	pending  []*model.Envelope
	failed   []*model.Envelope
	finished []string
	started  []string

	errEnqueue error
	errRequeue error
}

var _ queue.Queue = (*fakeQueue)(nil)

func (f *fakeQueue) Name() string { return f.name }

func (f *fakeQueue) Enqueue(ctx context.Context, env *model.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errEnqueue != nil {
		return f.errEnqueue
	}
	f.pending = append(f.pending, env)
	return nil
}

func (f *fakeQueue) Length(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.pending)), nil
}

func (f *fakeQueue) FailedCount(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.failed)), nil
}

func (f *fakeQueue) FinishedCount(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.finished)), nil
}

func (f *fakeQueue) StartedCount(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.started)), nil
}

func (f *fakeQueue) Drain(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
	return nil
}

func (f *fakeQueue) RequeueAllFailed(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errRequeue != nil {
		return 0, f.errRequeue
	}
	n := int64(len(f.failed))
	f.pending = append(f.pending, f.failed...)
	f.failed = nil
	return n, nil
}

func (f *fakeQueue) MarkStarted(ctx context.Context, env *model.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, env.JobID)
	return nil
}

func (f *fakeQueue) MarkFinished(ctx context.Context, env *model.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, env.JobID)
	return nil
}

func (f *fakeQueue) MarkFailed(ctx context.Context, env *model.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, env)
	return nil
}

type fakeBroker struct {
	mu     sync.Mutex
	names  []string
	queues map[string]*fakeQueue
	down   bool
	swept  int64
}

var _ queue.Broker = (*fakeBroker)(nil)

func newFakeBroker(names ...string) *fakeBroker {
	if len(names) == 0 {
		names = []string{"chat", "documents", "default"}
	}
	b := &fakeBroker{names: names, queues: map[string]*fakeQueue{}}
	for _, n := range names {
		b.queues[n] = &fakeQueue{name: n}
	}
	return b
}

func (b *fakeBroker) GetQueue(name string) (queue.Queue, error) {
	q, ok := b.queues[name]
	if !ok || b.down {
		return nil, domain.ErrQueueUnavailable
	}
	return q, nil
}

func (b *fakeBroker) QueueNames() []string { return b.names }

func (b *fakeBroker) IsConnected(ctx context.Context) bool { return !b.down }

func (b *fakeBroker) Dequeue(ctx context.Context) (*model.Envelope, queue.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.names {
		q := b.queues[n]
		q.mu.Lock()
		if len(q.pending) > 0 {
			env := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return env, q, nil
		}
		q.mu.Unlock()
	}
	return nil, nil, domain.ErrNotFound
}

func (b *fakeBroker) SweepJobKeys(ctx context.Context) (int64, error) { return b.swept, nil }

func (b *fakeBroker) Close() error { return nil }
