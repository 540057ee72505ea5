// Package store persists (chunk, vector) pairs in SQLite for the lifetime of
// one ingestion generation. The default ":memory:" DSN keeps everything
// in-process; a file path survives restarts if ever wanted.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"kbot/internal/document"
)

// Entry is one stored chunk with its embedding vector.
type Entry struct {
	ID        string
	Content   string
	Vector    []float32
	CreatedAt time.Time
}

// Store holds the chunk table and the live generation pointer. A rebuild
// writes a complete new generation and only then flips the pointer, so a
// failed build leaves the previous index untouched.
type Store struct {
	db *sql.DB

	mu         sync.RWMutex
	generation int64
	count      int
}

// Open creates (or opens) the store at dsn. Use ":memory:" for purely
// process-scoped state.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The in-memory database vanishes when its last connection closes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id         TEXT NOT NULL,
			generation INTEGER NOT NULL,
			content    TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id, generation)
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_generation ON chunks(generation);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Rebuild replaces the live index with the given batch. chunks and vectors
// must be parallel slices. The new generation is written inside one
// transaction; the live pointer flips only after commit succeeds, and old
// rows are swept afterwards.
func (s *Store) Rebuild(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return fmt.Errorf("refusing to build an empty index")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	s.mu.RLock()
	next := s.generation + 1
	s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, generation, content, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		embJSON, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("serialize vector %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, next, chunk.Content, string(embJSON)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	s.mu.Lock()
	old := s.generation
	s.generation = next
	s.count = len(chunks)
	s.mu.Unlock()

	// Sweep superseded rows. Failure here is harmless; the next sweep or
	// rebuild removes them.
	if old > 0 {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM chunks WHERE generation <= ?", old)
	}
	return nil
}

// Live returns every entry of the current generation.
func (s *Store) Live(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()
	if gen == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, embedding, created_at FROM chunks WHERE generation = ?", gen)
	if err != nil {
		return nil, fmt.Errorf("query live chunks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var embJSON string
		if err := rows.Scan(&e.ID, &e.Content, &embJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(embJSON), &e.Vector); err != nil {
			return nil, fmt.Errorf("parse vector for chunk %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ready reports whether a successful build has been installed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation > 0 && s.count > 0
}

// Count returns the number of chunks in the live generation.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
