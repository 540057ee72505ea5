package document

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProducesChunks(t *testing.T) {
	loader := NewLoader(NewSplitter(1000, 150), nil)
	chunks, err := loader.Load("<html><body><p>Gophers are small burrowing rodents.</p></body></html>")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "burrowing rodents") {
		t.Errorf("chunk content wrong: %q", chunks[0].Content)
	}
	if chunks[0].ID == "" {
		t.Error("chunk ID not assigned")
	}
}

func TestLoadEmptyHTMLFailsWithNoContent(t *testing.T) {
	loader := NewLoader(NewSplitter(1000, 150), nil)
	for _, raw := range []string{"", "<html><body></body></html>", "<script>only();</script>"} {
		_, err := loader.Load(raw)
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("Load(%q) error = %v, want ErrNoContent", raw, err)
		}
	}
}

func TestLoadCleansUpScratchFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	loader := NewLoader(NewSplitter(1000, 150), nil)

	// Success path.
	if _, err := loader.Load("<p>some content</p>"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// Failure path.
	if _, err := loader.Load(""); err == nil {
		t.Fatal("expected failure for empty input")
	}

	leftovers, err := filepath.Glob(filepath.Join(tmp, "kbot-*.html"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("scratch files left behind: %v", leftovers)
	}
}

func TestLoadNormalizesBeforeSplitting(t *testing.T) {
	loader := NewLoader(NewSplitter(1000, 150), nil)
	chunks, err := loader.Load("<p>ﬁle systems</p>")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(chunks[0].Content, "file systems") {
		t.Errorf("expected NFKC-normalized text, got %q", chunks[0].Content)
	}
}
