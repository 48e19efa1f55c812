package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/domain/model"
	"legal-ai-jobs/internal/domain/ports/adapter"
)

func chatPayload(t *testing.T, query string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(model.ChatQueryPayload{Query: query, UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func docPayload(t *testing.T, content, filename string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(model.DocumentUploadPayload{Content: content, Filename: filename})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleChatQuery(t *testing.T) {
	ai := &fakeAI{answer: "clause 4 covers termination"}
	vec := &fakeVector{hits: map[string][]adapter.SearchHit{
		"contracts": {
			{Content: "termination terms", Source: "nda.pdf", Page: "4", Score: 0.91},
		},
	}}
	h := NewHandlers(ai, vec, 5, "category", testLogger())

	out, err := h.HandleChatQuery(context.Background(), "chat_x_1", chatPayload(t, "what does clause 4 cover?"))
	if err != nil {
		t.Fatalf("HandleChatQuery: %v", err)
	}
	res, ok := out.(model.ChatQueryResult)
	if !ok {
		t.Fatalf("result type %T", out)
	}
	if res.Answer != "clause 4 covers termination" {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.Sources) != 1 || res.Sources[0].Source != "nda.pdf" {
		t.Errorf("sources = %+v", res.Sources)
	}
	if !strings.Contains(ai.lastContext, "Page Number: 4") ||
		!strings.Contains(ai.lastContext, "File Location: nda.pdf") ||
		!strings.Contains(ai.lastContext, "Page Content: termination terms") {
		t.Errorf("context block = %q", ai.lastContext)
	}
}

func TestHandleChatQueryNoHits(t *testing.T) {
	ai := &fakeAI{answer: "I could not find anything relevant."}
	h := NewHandlers(ai, &fakeVector{}, 5, "category", testLogger())

	if _, err := h.HandleChatQuery(context.Background(), "chat_x_1", chatPayload(t, "anything?")); err != nil {
		t.Fatalf("HandleChatQuery: %v", err)
	}
	if ai.lastContext != "No relevant documents found." {
		t.Errorf("context block = %q", ai.lastContext)
	}
}

func TestHandleChatQuerySearchFailureDegrades(t *testing.T) {
	ai := &fakeAI{answer: "best effort"}
	vec := &fakeVector{searchErr: errors.New("collection missing")}
	h := NewHandlers(ai, vec, 5, "category", testLogger())

	// Search failures degrade the context, they do not fail the job.
	if _, err := h.HandleChatQuery(context.Background(), "chat_x_1", chatPayload(t, "question")); err != nil {
		t.Fatalf("HandleChatQuery: %v", err)
	}
}

func TestHandleChatQueryBadPayload(t *testing.T) {
	h := NewHandlers(&fakeAI{}, &fakeVector{}, 5, "category", testLogger())
	_, err := h.HandleChatQuery(context.Background(), "chat_x_1", json.RawMessage(`{broken`))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestHandleDocumentUpload(t *testing.T) {
	ai := &fakeAI{category: "Contracts"}
	vec := &fakeVector{}
	h := NewHandlers(ai, vec, 5, "category", testLogger())

	content := strings.Repeat("clause text ", 200) // long enough for several chunks
	out, err := h.HandleDocumentUpload(context.Background(), "doc_x_1", docPayload(t, content, "nda.pdf"))
	if err != nil {
		t.Fatalf("HandleDocumentUpload: %v", err)
	}
	res, ok := out.(model.DocumentUploadResult)
	if !ok {
		t.Fatalf("result type %T", out)
	}
	if res.Category != "contracts" {
		t.Errorf("category = %q, want normalized contracts", res.Category)
	}
	if res.DocumentID == "" {
		t.Error("no document id minted")
	}
	if res.ChunksStored < 2 {
		t.Errorf("chunks stored = %d, want several", res.ChunksStored)
	}
	if len(vec.upserts["contracts"]) != res.ChunksStored {
		t.Errorf("stored %d chunks in collection, result says %d", len(vec.upserts["contracts"]), res.ChunksStored)
	}
}

func TestHandleDocumentUploadUnknownCategory(t *testing.T) {
	ai := &fakeAI{category: "financial statements"}
	vec := &fakeVector{}
	h := NewHandlers(ai, vec, 5, "category", testLogger())

	out, err := h.HandleDocumentUpload(context.Background(), "doc_x_1", docPayload(t, "short doc", "misc.txt"))
	if err != nil {
		t.Fatal(err)
	}
	res := out.(model.DocumentUploadResult)
	if res.Category != "category" {
		t.Errorf("category = %q, want generic fallback", res.Category)
	}
	if len(vec.upserts["category"]) == 0 {
		t.Error("chunks not stored in the generic collection")
	}
}

func TestHandleDocumentUploadClassifyFailure(t *testing.T) {
	ai := &fakeAI{err: errors.New("model overloaded")}
	h := NewHandlers(ai, &fakeVector{}, 5, "category", testLogger())

	if _, err := h.HandleDocumentUpload(context.Background(), "doc_x_1", docPayload(t, "text", "a.txt")); err == nil {
		t.Fatal("expected classification failure to surface")
	}
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewHandlers(&fakeAI{}, &fakeVector{}, 5, "category", testLogger())

	out, err := h.HandleHealthCheck(context.Background(), "health_x_1", nil)
	if err != nil {
		t.Fatalf("HandleHealthCheck: %v", err)
	}
	res, ok := out.(model.HealthCheckResult)
	if !ok {
		t.Fatalf("result type %T", out)
	}
	if res.Message != model.HealthCheckMessage {
		t.Errorf("message = %q", res.Message)
	}
	if res.Timestamp == 0 {
		t.Error("timestamp not set")
	}
}

func TestHandleHealthCheckCancelled(t *testing.T) {
	h := NewHandlers(&fakeAI{}, &fakeVector{}, 5, "category", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.HandleHealthCheck(ctx, "health_x_1", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestChunkText(t *testing.T) {
	short := chunkText("tiny", 1000, 300)
	if len(short) != 1 || short[0] != "tiny" {
		t.Errorf("short text chunks = %v", short)
	}

	text := strings.Repeat("a", 2500)
	chunks := chunkText(text, 1000, 300)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Errorf("chunk sizes = %d/%d, want 1000", len(chunks[0]), len(chunks[1]))
	}
	// Step is size-overlap, so the last window starts at 1400.
	if len(chunks[2]) != 1100 {
		t.Errorf("final chunk = %d, want 1100", len(chunks[2]))
	}

	if got := chunkText("", 1000, 300); got != nil {
		t.Errorf("empty text chunks = %v", got)
	}
}

func TestNormalizeCategory(t *testing.T) {
	for in, want := range map[string]string{
		"contracts":   "contracts",
		" Contracts ": "contracts",
		"POLICY":      "policy",
		"invoices":    "category",
		"":            "category",
	} {
		if got := normalizeCategory(in, "category"); got != want {
			t.Errorf("normalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}
