package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kbot/internal/document"
	"kbot/internal/index"
	"kbot/internal/rag"
)

type ingestRequest struct {
	URLs            []string `json:"urls"`
	IncludeInternal bool     `json:"include_internal"`
}

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

type askResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest request",
		zap.Int("urls", len(req.URLs)),
		zap.Bool("include_internal", req.IncludeInternal))

	if err := s.service.Ingest(r.Context(), req.URLs, req.IncludeInternal); err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, ingestStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully loaded %d URLs", len(req.URLs)),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question must not be empty")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = "default"
	}

	answer, err := s.service.Ask(r.Context(), req.ConversationID, req.Question)
	if err != nil {
		s.logger.Error("ask failed",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err))
		s.respondError(w, askStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{
		Answer:         answer,
		ConversationID: req.ConversationID,
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": s.service.History(id),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.service.Ready() {
		s.respondError(w, http.StatusServiceUnavailable, "index not ready")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, rag.ErrIngestInProgress):
		return http.StatusConflict
	case errors.Is(err, rag.ErrNoURLs), errors.Is(err, document.ErrNoContent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func askStatus(err error) int {
	if errors.Is(err, index.ErrNotReady) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
