package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"legal-ai-jobs/internal/domain/ports/adapter"
)

var _ adapter.AIService = (*GeminiAdapter)(nil)
var _ adapter.Embedder = (*GeminiAdapter)(nil)

const geminiEmbedModel = "text-embedding-004"

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-1.5-flash"
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) GenerateAnswer(ctx context.Context, query, contextBlock string) (string, error) {
	prompt := fmt.Sprintf(
		"You are a legal document assistant. Answer the question using only the "+
			"provided context. If the context does not contain the answer, say so.\n\n"+
			"Context:\n%s\n\nQuestion: %s",
		contextBlock, query)
	return g.generate(ctx, prompt)
}

func (g *GeminiAdapter) ClassifyDocument(ctx context.Context, filename, content string) (string, error) {
	// The classifier only needs the head of the document.
	content = sampleHead(content, classifySampleLen)
	prompt := fmt.Sprintf(
		"Classify the following legal document into exactly one category. "+
			"Reply with a single word: contracts, policy, or other.\n\n"+
			"Filename: %s\n\nDocument:\n%s",
		filename, content)
	reply, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(reply)), nil
}

func (g *GeminiAdapter) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, geminiEmbedModel, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, errors.New("gemini: empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

func (g *GeminiAdapter) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.defaultModel,
		genai.Text(prompt),
		&genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxOut)},
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
