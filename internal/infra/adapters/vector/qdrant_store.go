package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain/ports/adapter"
)

var _ adapter.VectorStore = (*QdrantStore)(nil)

// QdrantStore implements the vector port against Qdrant's REST API.
// Collections are created lazily on first upsert, sized to whatever the
// embedder produces.
type QdrantStore struct {
	base   string
	embed  adapter.Embedder
	client *http.Client
	log    *zerolog.Logger
}

func NewQdrantStore(baseURL string, embed adapter.Embedder, logger *zerolog.Logger) *QdrantStore {
	qLog := logger.With().Str("component", "QdrantStore").Logger()
	return &QdrantStore{
		base:   strings.TrimRight(baseURL, "/"),
		embed:  embed,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    &qLog,
	}
}

func (q *QdrantStore) Search(ctx context.Context, collection, query string, topK int) ([]adapter.SearchHit, error) {
	vec, err := q.embed.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body := struct {
		Vector      []float32 `json:"vector"`
		Limit       int       `json:"limit"`
		WithPayload bool      `json:"with_payload"`
	}{Vector: vec, Limit: topK, WithPayload: true}

	var out struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", collection)
	if err := q.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}

	hits := make([]adapter.SearchHit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, adapter.SearchHit{
			Content: payloadString(r.Payload, "content"),
			Source:  payloadString(r.Payload, "source"),
			Page:    payloadString(r.Payload, "page"),
			Score:   r.Score,
		})
	}
	return hits, nil
}

func (q *QdrantStore) UpsertChunks(ctx context.Context, collection, documentID, source string, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	points := make([]point, 0, len(chunks))
	var dim int
	for i, chunk := range chunks {
		vec, err := q.embed.EmbedText(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		dim = len(vec)
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vec,
			Payload: map[string]any{
				"content":     chunk,
				"source":      source,
				"page":        strconv.Itoa(i + 1),
				"document_id": documentID,
			},
		})
	}

	if err := q.ensureCollection(ctx, collection, dim); err != nil {
		return 0, err
	}

	body := struct {
		Points []point `json:"points"`
	}{Points: points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	if err := q.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return 0, err
	}
	q.log.Debug().Str("collection", collection).Str("document_id", documentID).
		Int("points", len(points)).Msg("chunks upserted")
	return len(points), nil
}

// ensureCollection creates the collection when missing. A conflict reply
// means someone else created it first, which is fine.
func (q *QdrantStore) ensureCollection(ctx context.Context, collection string, dim int) error {
	body := struct {
		Vectors struct {
			Size     int    `json:"size"`
			Distance string `json:"distance"`
		} `json:"vectors"`
	}{}
	body.Vectors.Size = dim
	body.Vectors.Distance = "Cosine"

	err := q.do(ctx, http.MethodPut, "/collections/"+collection, body, nil)
	if err != nil && !strings.Contains(err.Error(), "409") {
		return fmt.Errorf("ensure collection %s: %w", collection, err)
	}
	return nil
}

func (q *QdrantStore) do(ctx context.Context, method, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, q.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant http %d on %s %s", resp.StatusCode, method, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
