package store

import (
	"context"
	"testing"

	"kbot/internal/document"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreNotReadyBeforeBuild(t *testing.T) {
	s := openTestStore(t)
	if s.Ready() {
		t.Error("fresh store must not be ready")
	}
	entries, err := s.Live(context.Background())
	if err != nil {
		t.Fatalf("Live failed: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no live entries, got %d", len(entries))
	}
}

func TestRebuildInstallsBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunks := []document.Chunk{
		{ID: "c1", Content: "gophers burrow"},
		{ID: "c2", Content: "marmots whistle"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}
	if err := s.Rebuild(ctx, chunks, vectors); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if !s.Ready() {
		t.Fatal("store should be ready after rebuild")
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}

	entries, err := s.Live(ctx)
	if err != nil {
		t.Fatalf("Live failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	if byID["c1"].Content != "gophers burrow" {
		t.Errorf("c1 content = %q", byID["c1"].Content)
	}
	if got := byID["c2"].Vector; len(got) != 2 || got[1] != 1 {
		t.Errorf("c2 vector = %v", got)
	}
}

func TestRebuildReplacesWholesale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []document.Chunk{{ID: "old", Content: "old content"}}
	if err := s.Rebuild(ctx, first, [][]float32{{1}}); err != nil {
		t.Fatal(err)
	}
	second := []document.Chunk{{ID: "new", Content: "new content"}}
	if err := s.Rebuild(ctx, second, [][]float32{{2}}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Live(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "new" {
		t.Errorf("expected only the new batch live, got %+v", entries)
	}
}

func TestFailedRebuildKeepsPreviousIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	good := []document.Chunk{{ID: "keep", Content: "survives"}}
	if err := s.Rebuild(ctx, good, [][]float32{{1}}); err != nil {
		t.Fatal(err)
	}

	// Mismatched slices abort before anything is written.
	bad := []document.Chunk{{ID: "b1"}, {ID: "b2"}}
	if err := s.Rebuild(ctx, bad, [][]float32{{1}}); err == nil {
		t.Fatal("expected rebuild failure")
	}

	// A cancelled context aborts the transaction mid-build.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Rebuild(cancelled, good, [][]float32{{9}}); err == nil {
		t.Fatal("expected rebuild failure under cancelled context")
	}

	if !s.Ready() {
		t.Fatal("store lost readiness after failed rebuilds")
	}
	entries, err := s.Live(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "keep" || entries[0].Vector[0] != 1 {
		t.Errorf("previous index damaged by failed rebuild: %+v", entries)
	}
}

func TestRebuildRejectsEmptyBatch(t *testing.T) {
	s := openTestStore(t)
	if err := s.Rebuild(context.Background(), nil, nil); err == nil {
		t.Error("expected error for empty batch")
	}
	if s.Ready() {
		t.Error("store must not become ready from an empty batch")
	}
}
