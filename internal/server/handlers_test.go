package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperdocs/kotae/internal/answer"
	"github.com/hyperdocs/kotae/internal/config"
	"github.com/hyperdocs/kotae/internal/convstore"
	"github.com/hyperdocs/kotae/internal/ingest"
	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/internal/vectorstore"
)

type stubLLM struct {
	response string
}

func (s *stubLLM) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return s.response, nil
}

func (s *stubLLM) GenerateWithLimit(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	return s.response, nil
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	root := t.TempDir()
	orgDir := filepath.Join(root, "acme")
	if err := os.MkdirAll(orgDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "Refunds are accepted within thirty days of purchase with a receipt."
	if err := os.WriteFile(filepath.Join(orgDir, "policies.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orgDir, "org.yaml"), []byte("name: Acme Corp\n"), 0644); err != nil {
		t.Fatal(err)
	}

	library := ingest.NewLibrary(root, ingest.NewChunker(100, 10), nil, nil)
	if _, err := library.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	convs, err := convstore.NewSQLiteStore(filepath.Join(t.TempDir(), "conv.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { convs.Close() })

	vectors, _ := vectorstore.NewMemoryStore(2)
	orchestrator := answer.NewOrchestrator(&stubLLM{response: "Refunds are accepted within thirty days."}, vectors, convs)

	return NewServer(orchestrator, library, convs, &config.ServerConfig{Host: "127.0.0.1", Port: 0}, zap.NewNop())
}

func TestHandleQuery(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	body := `{"query": "What is the refund policy?", "user_id": "user1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/acme/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ans models.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if ans.Response == "" {
		t.Error("expected a response")
	}
	if ans.ConversationID == "" {
		t.Error("expected a conversation to be created")
	}
}

func TestHandleQueryUnknownOrganization(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/ghost/query",
		strings.NewReader(`{"query": "hello", "user_id": "u"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleQueryMissingQuery(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/acme/query",
		strings.NewReader(`{"user_id": "u"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/acme/suggestions", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Suggestions) == 0 {
		t.Error("expected suggestions")
	}
}

func TestHandleListOrganizations(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Acme Corp") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleGetMessagesNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/missing/messages", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestQueryThenReadConversation(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/acme/query",
		strings.NewReader(`{"query": "What is the refund policy?", "user_id": "user1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d", rec.Code)
	}
	var ans models.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+ans.ConversationID+"/messages", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("messages status = %d", rec.Code)
	}
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("messages = %d, want user and assistant", len(resp.Messages))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+ans.ConversationID+"/messages?limit=1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("limited messages status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("limited messages = %d, want 1", len(resp.Messages))
	}
	if resp.Messages[0].Role != models.RoleAssistant {
		t.Errorf("limited read kept role %q, want the most recent message", resp.Messages[0].Role)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+ans.ConversationID+"/messages?limit=abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Documents int `json:"documents"`
		Chunks    int `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Documents != 1 || resp.Chunks == 0 {
		t.Errorf("status = %+v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
