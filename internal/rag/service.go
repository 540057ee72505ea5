// Package rag wires the pipeline together: scrape, split, embed, index on
// the ingestion side; retrieve, prompt, generate on the answer side.
package rag

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"kbot/internal/document"
	"kbot/internal/embedding"
	"kbot/internal/index"
	"kbot/internal/llm"
	"kbot/internal/memory"
	"kbot/internal/scrape"
	"kbot/internal/store"
)

// ErrIngestInProgress is returned when a second ingestion is attempted while
// one is running. The single browser session cannot serve two batches.
var ErrIngestInProgress = errors.New("ingestion already in progress")

// ErrNoURLs is returned for an empty ingestion request.
var ErrNoURLs = errors.New("no urls provided")

// Service is the RAG assistant: it owns the pipeline dependencies and the
// shared mutable state (index, conversations).
type Service struct {
	scraper   *scrape.Scraper
	loader    *document.Loader
	engine    embedding.Engine
	store     *store.Store
	retriever *index.Retriever
	memory    *memory.Store
	llm       llm.Client
	logger    *zap.Logger

	ingest     *semaphore.Weighted
	maxHistory int
}

// NewService assembles a service from its parts. maxHistory caps how many
// prior messages are fed into the prompt (the store itself is unbounded).
func NewService(
	scraper *scrape.Scraper,
	loader *document.Loader,
	engine embedding.Engine,
	st *store.Store,
	retriever *index.Retriever,
	mem *memory.Store,
	client llm.Client,
	maxHistory int,
	logger *zap.Logger,
) *Service {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scraper:    scraper,
		loader:     loader,
		engine:     engine,
		store:      st,
		retriever:  retriever,
		memory:     mem,
		llm:        client,
		logger:     logger,
		ingest:     semaphore.NewWeighted(1),
		maxHistory: maxHistory,
	}
}

// Ingest scrapes urls, splits the combined content, embeds every chunk, and
// installs the batch as the new index. On any failure the previous index
// stays live. Only one ingestion runs at a time; a concurrent attempt gets
// ErrIngestInProgress instead of queueing behind the browser.
func (s *Service) Ingest(ctx context.Context, urls []string, includeInternal bool) error {
	if len(urls) == 0 {
		return ErrNoURLs
	}
	if !s.ingest.TryAcquire(1) {
		return ErrIngestInProgress
	}
	defer s.ingest.Release(1)

	s.logger.Info("ingestion started",
		zap.Int("urls", len(urls)),
		zap.Bool("include_internal", includeInternal))

	blob, err := s.scraper.ScrapeURLs(ctx, urls, includeInternal)
	if err != nil {
		return fmt.Errorf("scrape urls: %w", err)
	}

	chunks, err := s.loader.Load(blob)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	if err := s.store.Rebuild(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	s.logger.Info("ingestion complete", zap.Int("chunks", len(chunks)))
	return nil
}

// Ask records the question, retrieves grounding context for it, and asks the
// model. The question is appended before anything can fail, so an aborted
// ask still shows up in history; the assistant message is appended only on
// success.
func (s *Service) Ask(ctx context.Context, conversationID, question string) (string, error) {
	s.memory.Append(conversationID, memory.RoleUser, question)

	history := s.memory.History(conversationID)
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	prompt := historyPrompt(history, question)

	entries, err := s.retriever.Retrieve(ctx, prompt)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}

	final := fmt.Sprintf(answerTemplate, groundingContext(texts), prompt)
	answer, err := s.llm.Complete(ctx, final)
	if err != nil {
		return "", fmt.Errorf("model invocation failed: %w", err)
	}

	s.memory.Append(conversationID, memory.RoleAssistant, answer)
	s.logger.Debug("question answered",
		zap.String("conversation_id", conversationID),
		zap.Int("context_chunks", len(entries)))
	return answer, nil
}

// History returns the recorded messages for a conversation; empty for an
// unknown ID.
func (s *Service) History(conversationID string) []memory.Message {
	return s.memory.History(conversationID)
}

// Ready reports whether the index can serve retrievals.
func (s *Service) Ready() bool {
	return s.store.Ready()
}
