package adapter

import "context"

// SearchHit is one similarity-search result.
type SearchHit struct {
	Content string
	Source  string
	Page    string
	Score   float64
}

// VectorStore is the port for the external vector index. Collections map to
// document categories; ranking internals are the store's concern.
type VectorStore interface {
	// Search returns up to topK hits for the query in the named collection.
	Search(ctx context.Context, collection, query string, topK int) ([]SearchHit, error)

	// UpsertChunks stores document chunks under the named collection and
	// returns the number stored.
	UpsertChunks(ctx context.Context, collection, documentID, source string, chunks []string) (int, error)
}
