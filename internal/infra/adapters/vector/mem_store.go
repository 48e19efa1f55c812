package vector

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"legal-ai-jobs/internal/domain/ports/adapter"
)

var _ adapter.VectorStore = (*MemStore)(nil)

type memChunk struct {
	content string
	source  string
	page    string
}

// MemStore is an in-memory stand-in for local/dev runs: term-overlap scoring
// instead of real similarity, collections as plain maps.
type MemStore struct {
	mu          sync.Mutex
	collections map[string][]memChunk
}

func NewMemStore() *MemStore {
	return &MemStore{collections: map[string][]memChunk{}}
}

func (m *MemStore) Search(ctx context.Context, collection, query string, topK int) ([]adapter.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	terms := strings.Fields(strings.ToLower(query))
	var hits []adapter.SearchHit
	for _, c := range m.collections[collection] {
		score := 0.0
		lower := strings.ToLower(c.content)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, adapter.SearchHit{
				Content: c.content,
				Source:  c.source,
				Page:    c.page,
				Score:   score / float64(len(terms)),
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemStore) UpsertChunks(ctx context.Context, collection, documentID, source string, chunks []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, chunk := range chunks {
		m.collections[collection] = append(m.collections[collection], memChunk{
			content: chunk,
			source:  source,
			page:    strconv.Itoa(i + 1),
		})
	}
	return len(chunks), nil
}
