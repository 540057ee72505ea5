// Package server provides the HTTP API for kbot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kbot/internal/config"
	"kbot/internal/rag"
)

// Server is the HTTP front for the RAG service.
type Server struct {
	service *rag.Service
	cfg     *config.ServerConfig
	logger  *zap.Logger
	httpSrv *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(service *rag.Service, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{service: service, cfg: cfg, logger: logger}
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Routes builds the router with all middleware and endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	timeout := time.Duration(s.cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r.Use(middleware.Timeout(timeout))
	r.Use(allowAllCORS)

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/conversations/{id}", s.handleConversation)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	return r
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// allowAllCORS mirrors the permissive CORS policy of the browser-facing chat
// frontend: any origin, any method, any header.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
