package adapter

import "context"

// AIService is the port for the external generation model. The only contract
// relevant here is "given input X, return answer/category Y, may fail".
type AIService interface {
	// GenerateAnswer produces an answer for the query grounded on the
	// retrieved context block.
	GenerateAnswer(ctx context.Context, query, contextBlock string) (string, error)

	// ClassifyDocument buckets a document into one of the known legal
	// categories ("contracts", "policy"); unknown content falls back to the
	// generic collection.
	ClassifyDocument(ctx context.Context, filename, content string) (string, error)
}
