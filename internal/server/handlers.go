package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperdocs/kotae/internal/answer"
	"github.com/hyperdocs/kotae/internal/convstore"
	"github.com/hyperdocs/kotae/internal/models"
)

type queryRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	org, ok := s.library.Snapshot(orgID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "organization not found")
		return
	}

	s.logger.Debug("query request",
		zap.String("org_id", orgID),
		zap.String("query", req.Query),
		zap.String("conversation_id", req.ConversationID))

	ans := s.orchestrator.Answer(r.Context(), req.Query, org, req.UserID, req.ConversationID)
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	org, ok := s.library.Snapshot(orgID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "organization not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": answer.Suggestions(org),
	})
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	type orgInfo struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Documents int    `json:"documents"`
	}
	ids := s.library.Organizations()
	orgs := make([]orgInfo, 0, len(ids))
	for _, id := range ids {
		if org, ok := s.library.Snapshot(id); ok {
			orgs = append(orgs, orgInfo{ID: org.ID, Name: org.Name, Documents: len(org.Documents)})
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	userID := r.URL.Query().Get("user_id")
	if orgID == "" || userID == "" {
		s.respondError(w, http.StatusBadRequest, "org_id and user_id are required")
		return
	}
	conversations, err := s.convs.ListConversations(r.Context(), orgID, userID)
	if err != nil {
		s.logger.Error("list conversations failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"conversations": conversations})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.convs.GetConversation(r.Context(), id); err != nil {
		if errors.Is(err, convstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("get conversation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	messages, err := s.convs.GetMessages(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("get messages failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete conversation request", zap.String("id", id))
	if err := s.convs.DeleteConversation(r.Context(), id); err != nil {
		s.logger.Error("delete conversation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type orgStatus struct {
		Name      string `json:"name"`
		Documents int    `json:"documents"`
		Chunks    int    `json:"chunks"`
	}
	orgs := make(map[string]orgStatus)
	totalDocs, totalChunks := 0, 0
	for _, id := range s.library.Organizations() {
		org, ok := s.library.Snapshot(id)
		if !ok {
			continue
		}
		chunks := len(org.AllChunks())
		orgs[id] = orgStatus{Name: org.Name, Documents: len(org.Documents), Chunks: chunks}
		totalDocs += len(org.Documents)
		totalChunks += chunks
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
		"documents":     totalDocs,
		"chunks":        totalChunks,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
