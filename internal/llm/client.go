// Package llm provides a client for OpenAI-compatible chat completion
// and embedding APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable marks failures where the LLM backend could not be
// reached or kept returning server errors. Callers can fall back to
// degraded behavior when they see it.
var ErrUnavailable = errors.New("llm backend unavailable")

// Client talks to an OpenAI-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	maxRetries int
	httpClient *http.Client
	cache      *EmbeddingCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithMaxRetries sets how many times transient failures are retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithEmbeddingCache enables an LRU cache for embeddings.
func WithEmbeddingCache(capacity int) Option {
	return func(c *Client) { c.cache = NewEmbeddingCache(capacity) }
}

// NewClient creates a client for the given API endpoint and models.
func NewClient(baseURL, apiKey, chatModel, embedModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		maxRetries: 2,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatMessage is a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatChoice is a single choice in the chat response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse is the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Choices []ChatChoice `json:"choices"`
}

// EmbeddingRequest is the request payload for the embeddings API.
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse is the response from the embeddings API.
type EmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Generate sends a system/user message pair and returns the completion.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return c.GenerateWithLimit(ctx, systemPrompt, userMessage, 0)
}

// GenerateWithLimit is Generate with an explicit completion token cap.
// A maxTokens of 0 leaves the cap to the backend.
func (c *Client) GenerateWithLimit(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	payload := ChatRequest{
		Model: c.chatModel,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens: maxTokens,
	}

	var chatResp ChatResponse
	if err := c.post(ctx, "/v1/chat/completions", payload, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache != nil {
		if vec, ok := c.cache.Get(text); ok {
			return vec, nil
		}
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(text, vectors[0])
	}
	return vectors[0], nil
}

// EmbedBatch returns embedding vectors for multiple texts in one call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := EmbeddingRequest{Model: c.embedModel, Input: texts}

	var embedResp EmbeddingResponse
	if err := c.post(ctx, "/v1/embeddings", payload, &embedResp); err != nil {
		return nil, err
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range embedResp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// post sends a JSON request and decodes the JSON response, retrying
// transport errors and 5xx responses with a short backoff.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(raw))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
