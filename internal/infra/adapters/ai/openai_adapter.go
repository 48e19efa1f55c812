package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"legal-ai-jobs/internal/domain/ports/adapter"
)

var _ adapter.AIService = (*OpenAIAdapter)(nil)
var _ adapter.Embedder = (*OpenAIAdapter)(nil)

const openAIEmbedModel = "text-embedding-3-small"

// OpenAIAdapter talks to OpenAI or any OpenAI-compatible gateway over its
// chat-completions and embeddings endpoints.
type OpenAIAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, model, base string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *OpenAIAdapter) GenerateAnswer(ctx context.Context, query, contextBlock string) (string, error) {
	return o.chat(ctx, []chatMessage{
		{Role: "system", Content: "You are a legal document assistant. Answer the question using only the provided context. If the context does not contain the answer, say so."},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)},
	})
}

func (o *OpenAIAdapter) ClassifyDocument(ctx context.Context, filename, content string) (string, error) {
	content = sampleHead(content, classifySampleLen)
	reply, err := o.chat(ctx, []chatMessage{
		{Role: "system", Content: "Classify the legal document into exactly one category. Reply with a single word: contracts, policy, or other."},
		{Role: "user", Content: fmt.Sprintf("Filename: %s\n\nDocument:\n%s", filename, content)},
	})
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(reply)), nil
}

func (o *OpenAIAdapter) chat(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{Model: o.model, Messages: messages}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}
	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func (o *OpenAIAdapter) EmbedText(ctx context.Context, text string) ([]float32, error) {
	reqBody := struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}{Model: openAIEmbedModel, Input: text}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/embeddings", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai embeddings http %d", resp.StatusCode)
	}
	var payload struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return payload.Data[0].Embedding, nil
}
