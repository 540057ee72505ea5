package document

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoContent is returned when extraction yields zero chunks. Ingestion
// must fail loudly rather than build an index from nothing.
var ErrNoContent = errors.New("no content extracted")

// Chunk is one retrievable unit of source text.
type Chunk struct {
	ID      string
	Content string
}

// Loader turns a raw HTML blob into chunks.
type Loader struct {
	splitter *Splitter
	logger   *zap.Logger
}

// NewLoader creates a loader around the given splitter.
func NewLoader(splitter *Splitter, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{splitter: splitter, logger: logger}
}

// Load normalizes rawHTML, stages it through a scratch file, extracts the
// readable text and splits it. The scratch file is removed on every exit
// path. Returns ErrNoContent when nothing splittable was found.
func (l *Loader) Load(rawHTML string) ([]Chunk, error) {
	normalized := Normalize(rawHTML)

	f, err := os.CreateTemp("", "kbot-*.html")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			l.logger.Warn("scratch file not removed", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	if _, err := f.WriteString(normalized); err != nil {
		f.Close()
		return nil, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close scratch file: %w", err)
	}

	staged, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scratch file: %w", err)
	}

	text, err := ExtractText(string(staged))
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	pieces := l.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, ErrNoContent
	}

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{ID: uuid.New().String(), Content: p}
	}
	l.logger.Debug("document loaded",
		zap.Int("chunks", len(chunks)),
		zap.Int("text_chars", len(text)))
	return chunks, nil
}
