package adapter

import "context"

// Embedder turns text into the vector representation the vector store
// indexes. Dimensionality is the implementation's concern; the store only
// requires consistency within a collection.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
