package document

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators orders boundaries from coarse to fine: paragraph, line,
// word, then raw characters as the last resort.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into chunks of at most chunkSize characters, with
// chunkOverlap characters shared between consecutive chunks so a fact that
// straddles a boundary survives in at least one neighbor.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a splitter. Sizes are measured in unicode characters.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split breaks text into chunks, preferring the coarsest boundary that keeps
// each piece under the size limit and recursing into finer boundaries for
// oversized pieces.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, c := range separators {
		if c == "" || strings.Contains(text, c) {
			sep = c
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if runeLen(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		// Oversized piece: flush what fits, then cut the piece itself at the
		// next finer boundary.
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, keeping the separator attached to
// the preceding piece so re-joining is lossless. The empty separator splits
// into individual characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	raw := strings.SplitAfter(text, sep)
	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// merge greedily packs pieces into chunks up to chunkSize, carrying a
// trailing window of up to chunkOverlap characters into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0
	for _, p := range pieces {
		plen := runeLen(p)
		if total+plen > s.chunkSize && total > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.chunkOverlap || (total+plen > s.chunkSize && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += plen
	}
	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
