package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.Model != "chat-model" {
			t.Errorf("model = %q", req.Model)
		}

		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Role: "assistant", Content: "the answer"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "chat-model", "embed-model")

	got, err := client.Generate(context.Background(), "be helpful", "what is up?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "the answer" {
		t.Errorf("got %q, want %q", got, "the answer")
	}
}

func TestGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "m", "e")
	if _, err := client.Generate(context.Background(), "s", "u"); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestEmbedBatchOrdering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		// Return data out of order; the client must restore input order.
		w.Write([]byte(`{"data":[{"index":1,"embedding":[2,2]},{"index":0,"embedding":[1,1]}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "m", "e")

	got, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("vectors out of order: %v", got)
	}
}

func TestEmbedUsesCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2,3]}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "m", "e", WithEmbeddingCache(8))

	for i := 0; i < 3; i++ {
		vec, err := client.Embed(context.Background(), "same text")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if len(vec) != 3 {
			t.Fatalf("vector = %v", vec)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Content: "recovered"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "m", "e", WithMaxRetries(2))

	got, err := client.Generate(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestUnavailableAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "m", "e", WithMaxRetries(1))

	_, err := client.Generate(context.Background(), "s", "u")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestBadRequestNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "m", "e", WithMaxRetries(3))

	_, err := client.Generate(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("client errors must not be ErrUnavailable")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmbeddingCacheEviction(t *testing.T) {
	cache := NewEmbeddingCache(2)
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	if _, ok := cache.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := cache.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if cache.Len() != 2 {
		t.Errorf("len = %d, want 2", cache.Len())
	}
}
