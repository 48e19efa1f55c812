package ai

import (
	"context"
	"hash/fnv"
	"time"

	"legal-ai-jobs/internal/domain/ports/adapter"
)

var _ adapter.AIService = (*NoopAIAdapter)(nil)
var _ adapter.Embedder = (*NoopAIAdapter)(nil)

// NoopAIAdapter stands in for a real model in local/dev runs: deterministic
// replies, no network.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{}
}

func (a *NoopAIAdapter) GenerateAnswer(ctx context.Context, query, contextBlock string) (string, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "This is a noop AI response.", nil
}

func (a *NoopAIAdapter) ClassifyDocument(ctx context.Context, filename, content string) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "other", nil
}

// EmbedText hashes the text into a small fixed vector so dev runs can
// exercise the vector store without a real embedding model. Identical text
// embeds identically; nothing more is promised.
func (a *NoopAIAdapter) EmbedText(ctx context.Context, text string) ([]float32, error) {
	const dim = 16
	out := make([]float32, dim)
	h := fnv.New32a()
	for i, r := range text {
		h.Write([]byte{byte(r)})
		out[i%dim] += float32(h.Sum32()%1000) / 1000
	}
	return out, nil
}
