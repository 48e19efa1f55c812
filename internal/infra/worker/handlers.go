package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/adapter"
)

// Handler executes one job and returns its result value, which is persisted
// as the record's result document.
type Handler func(ctx context.Context, jobID string, payload json.RawMessage) (any, error)

// Registry resolves the handler for a job category on the worker side; the
// broker envelope only carries the category tag.
type Registry struct {
	handlers map[model.JobType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[model.JobType]Handler{}}
}

func (r *Registry) Register(t model.JobType, h Handler) {
	r.handlers[t] = h
}

func (r *Registry) Resolve(t model.JobType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Document chunking parameters, matched to the embedding window the vector
// store is provisioned for.
const (
	chunkSize    = 1000
	chunkOverlap = 300
)

// Categories with a dedicated vector collection. Anything else lands in the
// generic collection.
const (
	categoryContracts = "contracts"
	categoryPolicy    = "policy"
	categoryGeneric   = "category"
)

// healthCheckDelay simulates real work so the health check exercises a full
// queue round-trip rather than an instant no-op.
const healthCheckDelay = 2 * time.Second

// Handlers binds the job categories to their external collaborators.
type Handlers struct {
	ai        adapter.AIService
	vector    adapter.VectorStore
	searchTop int
	generic   string // collection for documents outside the known categories
	log       *zerolog.Logger
}

func NewHandlers(ai adapter.AIService, vector adapter.VectorStore, searchTop int, genericCollection string, logger *zerolog.Logger) *Handlers {
	if searchTop <= 0 {
		searchTop = 5
	}
	if genericCollection == "" {
		genericCollection = categoryGeneric
	}
	hLog := logger.With().Str("component", "Handlers").Logger()
	return &Handlers{ai: ai, vector: vector, searchTop: searchTop, generic: genericCollection, log: &hLog}
}

// Registry returns a registry with every job category wired.
func (h *Handlers) Registry() *Registry {
	r := NewRegistry()
	r.Register(model.JobTypeChatQuery, h.HandleChatQuery)
	r.Register(model.JobTypeDocumentUpload, h.HandleDocumentUpload)
	r.Register(model.JobTypeHealthCheck, h.HandleHealthCheck)
	return r
}

// HandleChatQuery retrieves context for the query from every known
// collection and asks the model for a grounded answer.
func (h *Handlers) HandleChatQuery(ctx context.Context, jobID string, payload json.RawMessage) (any, error) {
	var p model.ChatQueryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: chat payload: %v", domain.ErrInvalidArgument, err)
	}
	if strings.TrimSpace(p.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}

	var hits []adapter.SearchHit
	for _, collection := range []string{categoryContracts, categoryPolicy, h.generic} {
		found, err := h.vector.Search(ctx, collection, p.Query, h.searchTop)
		if err != nil {
			// A missing collection is not fatal for the query; the answer
			// degrades to whatever context the other collections hold.
			h.log.Warn().Err(err).Str("job_id", jobID).Str("collection", collection).
				Msg("vector search failed")
			continue
		}
		hits = append(hits, found...)
	}
	if len(hits) > h.searchTop {
		hits = hits[:h.searchTop]
	}

	answer, err := h.ai.GenerateAnswer(ctx, p.Query, buildContextBlock(hits))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	result := model.ChatQueryResult{Query: p.Query, Answer: answer}
	for _, hit := range hits {
		result.Sources = append(result.Sources, model.SourceDocument{
			Content: hit.Content,
			Source:  hit.Source,
			Page:    hit.Page,
		})
	}
	return result, nil
}

// HandleDocumentUpload classifies the document, chunks it and stores the
// chunks in the category's collection.
func (h *Handlers) HandleDocumentUpload(ctx context.Context, jobID string, payload json.RawMessage) (any, error) {
	var p model.DocumentUploadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: document payload: %v", domain.ErrInvalidArgument, err)
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, fmt.Errorf("%w: empty document content", domain.ErrInvalidArgument)
	}

	category, err := h.ai.ClassifyDocument(ctx, p.Filename, p.Content)
	if err != nil {
		return nil, fmt.Errorf("classify document: %w", err)
	}
	category = normalizeCategory(category, h.generic)

	docID := ulid.Make().String()
	chunks := chunkText(p.Content, chunkSize, chunkOverlap)
	stored, err := h.vector.UpsertChunks(ctx, category, docID, p.Filename, chunks)
	if err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	h.log.Info().Str("job_id", jobID).Str("category", category).
		Int("chunks", stored).Msg("document ingested")

	return model.DocumentUploadResult{
		Filename:     p.Filename,
		Category:     category,
		DocumentID:   docID,
		ChunksStored: stored,
	}, nil
}

// HandleHealthCheck waits the simulated processing delay and reports the
// fixed success body.
func (h *Handlers) HandleHealthCheck(ctx context.Context, jobID string, payload json.RawMessage) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(healthCheckDelay):
	}
	return model.HealthCheckResult{
		Message:   model.HealthCheckMessage,
		Timestamp: time.Now().Unix(),
	}, nil
}

// buildContextBlock renders retrieved hits the way the generation prompt
// expects them.
func buildContextBlock(hits []adapter.SearchHit) string {
	if len(hits) == 0 {
		return "No relevant documents found."
	}
	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Page Number: %s\n", orUnknown(hit.Page))
		fmt.Fprintf(&b, "File Location: %s\n", orUnknown(hit.Source))
		fmt.Fprintf(&b, "Page Content: %s", hit.Content)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func normalizeCategory(category, generic string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case categoryContracts:
		return categoryContracts
	case categoryPolicy:
		return categoryPolicy
	default:
		return generic
	}
}

// chunkText splits text into overlapping windows. The final chunk keeps
// whatever remains even when shorter than the window.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size - 1
	}
	runes := []rune(text)
	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
