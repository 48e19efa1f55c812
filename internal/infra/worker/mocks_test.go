package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/adapter"
	"legal-ai-jobs/internal/domain/ports/queue"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- record store fake ----

type memRepo struct {
	mu   sync.Mutex
	byID map[string]*model.JobRecord
}

func newMemRepo() *memRepo { return &memRepo{byID: map[string]*model.JobRecord{}} }

func (m *memRepo) seed(jobID string, t model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[jobID] = model.NewJobRecord(jobID, t, nil)
}

func (m *memRepo) get(jobID string) *model.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[jobID]
}

func (m *memRepo) Create(ctx context.Context, rec *model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[rec.JobID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *rec
	m.byID[rec.JobID] = &cp
	return nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, errMsg string) error {
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
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	rec := m.get(jobID)
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memRepo) ListRecent(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	return nil, nil
}

func (m *memRepo) ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.JobRecord, error) {
	return nil, nil
}

func (m *memRepo) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	return map[model.JobStatus]int{}, nil
}

func (m *memRepo) DeleteTerminalOlderThan(ctx context.Context, days int) (int, error) {
	return 0, nil
}

func (m *memRepo) Ping(ctx context.Context) error { return nil }

// ---- broker fake feeding a scripted envelope sequence ----

type scriptQueue struct {
	mu       sync.Mutex
	name     string
	started  []string
	finished []string
	failed   []*model.Envelope
}

var _ queue.Queue = (*scriptQueue)(nil)

func (q *scriptQueue) Name() string { return q.name }

func (q *scriptQueue) Enqueue(ctx context.Context, env *model.Envelope) error { return nil }

func (q *scriptQueue) Length(ctx context.Context) (int64, error)        { return 0, nil }
func (q *scriptQueue) FailedCount(ctx context.Context) (int64, error)   { return 0, nil }
func (q *scriptQueue) FinishedCount(ctx context.Context) (int64, error) { return 0, nil }
func (q *scriptQueue) StartedCount(ctx context.Context) (int64, error)  { return 0, nil }
func (q *scriptQueue) Drain(ctx context.Context) error                  { return nil }

func (q *scriptQueue) RequeueAllFailed(ctx context.Context) (int64, error) { return 0, nil }

func (q *scriptQueue) MarkStarted(ctx context.Context, env *model.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.started = append(q.started, env.JobID)
	return nil
}

func (q *scriptQueue) MarkFinished(ctx context.Context, env *model.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, env.JobID)
	return nil
}

func (q *scriptQueue) MarkFailed(ctx context.Context, env *model.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, env)
	return nil
}

// scriptBroker hands out a fixed envelope sequence, then reports an empty
// poll and fires onEmpty so the test can cancel the loop.
type scriptBroker struct {
	mu      sync.Mutex
	q       *scriptQueue
	envs    []*model.Envelope
	onEmpty func()
}

var _ queue.Broker = (*scriptBroker)(nil)

func newScriptBroker(envs ...*model.Envelope) *scriptBroker {
	return &scriptBroker{q: &scriptQueue{name: "default"}, envs: envs}
}

func (b *scriptBroker) GetQueue(name string) (queue.Queue, error) {
	if name != b.q.name {
		return nil, domain.ErrQueueUnavailable
	}
	return b.q, nil
}

func (b *scriptBroker) QueueNames() []string { return []string{b.q.name} }

func (b *scriptBroker) IsConnected(ctx context.Context) bool { return true }

func (b *scriptBroker) Dequeue(ctx context.Context) (*model.Envelope, queue.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.envs) == 0 {
		if b.onEmpty != nil {
			b.onEmpty()
		}
		return nil, nil, domain.ErrNotFound
	}
	env := b.envs[0]
	b.envs = b.envs[1:]
	return env, b.q, nil
}

func (b *scriptBroker) SweepJobKeys(ctx context.Context) (int64, error) { return 0, nil }

func (b *scriptBroker) Close() error { return nil }

// emptyBroker has no queues at all.
type emptyBroker struct{ scriptBroker }

func (b *emptyBroker) QueueNames() []string { return nil }

// ---- collaborator fakes ----

type fakeAI struct {
	answer   string
	category string
	err      error

	lastQuery   string
	lastContext string
}

var _ adapter.AIService = (*fakeAI)(nil)

func (f *fakeAI) GenerateAnswer(ctx context.Context, query, contextBlock string) (string, error) {
	f.lastQuery = query
	f.lastContext = contextBlock
	return f.answer, f.err
}

func (f *fakeAI) ClassifyDocument(ctx context.Context, filename, content string) (string, error) {
	return f.category, f.err
}

type fakeVector struct {
	hits      map[string][]adapter.SearchHit
	searchErr error
	upsertErr error

	upserts map[string][]string // collection -> chunks
	lastDoc string
}

var _ adapter.VectorStore = (*fakeVector)(nil)

func (f *fakeVector) Search(ctx context.Context, collection, query string, topK int) ([]adapter.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := f.hits[collection]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeVector) UpsertChunks(ctx context.Context, collection, documentID, source string, chunks []string) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	if f.upserts == nil {
		f.upserts = map[string][]string{}
	}
	f.upserts[collection] = append(f.upserts[collection], chunks...)
	f.lastDoc = documentID
	return len(chunks), nil
}
