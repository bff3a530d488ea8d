package chunker

import (
	"errors"
	"unicode"
)

// ErrEmptyDocument is returned when the input contains no text to index.
var ErrEmptyDocument = errors.New("chunker: document is empty")

// Chunk is a contiguous span of the source text. Start is the rune offset
// of the span in the original document, Index its position in chunk order.
type Chunk struct {
	Index int
	Start int
	Text  string
}

// Splitter splits a long string into chunks of approximately ChunkSize runes
// with Overlap runes shared between consecutive chunks to preserve context
// at boundaries.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0 // fallback if overlap >= chunkSize
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// Split covers the whole input in order with no gaps. Chunk boundaries are
// pulled back to the nearest whitespace when one is close, falling back to a
// hard cut so no data is ever lost.
func (s *Splitter) Split(text string) ([]Chunk, error) {
	runes := []rune(text)
	if isBlank(runes) {
		return nil, ErrEmptyDocument
	}

	totalLen := len(runes)
	if totalLen <= s.ChunkSize {
		return []Chunk{{Index: 0, Start: 0, Text: text}}, nil
	}

	var chunks []Chunk
	start := 0
	for start < totalLen {
		end := start + s.ChunkSize
		if end >= totalLen {
			end = totalLen
		} else {
			end = s.snapToWhitespace(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			Text:  string(runes[start:end]),
		})

		if end == totalLen {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = start + 1 // guarantee forward progress
		}
		start = next
	}

	return chunks, nil
}

// snapToWhitespace moves the cut back to just after the last whitespace rune
// near the end of the chunk, so words are not bisected. The search window is
// bounded; a chunk-sized run without whitespace gets a hard cut.
func (s *Splitter) snapToWhitespace(runes []rune, start, end int) int {
	window := s.ChunkSize / 8
	if window < 1 {
		window = 1
	}
	limit := end - window
	if limit <= start {
		limit = start + 1
	}
	for i := end - 1; i >= limit; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isBlank(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
