package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitEmptyDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "  \n\t  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(100, 20)
			_, err := s.Split(tt.text)
			if !errors.Is(err, ErrEmptyDocument) {
				t.Errorf("err = %v, want ErrEmptyDocument", err)
			}
		})
	}
}

func TestSplitShortDocumentIsSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	text := "a short document"

	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("Text = %q, want %q", chunks[0].Text, text)
	}
	if chunks[0].Index != 0 || chunks[0].Start != 0 {
		t.Errorf("Index/Start = %d/%d, want 0/0", chunks[0].Index, chunks[0].Start)
	}
}

// Every rune of the input must appear in some chunk: reconstructing the
// document from the chunks' Start offsets must give back the original.
func TestSplitCoversWholeDocument(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		text      string
	}{
		{name: "prose with overlap", chunkSize: 50, overlap: 10, text: strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)},
		{name: "no overlap", chunkSize: 40, overlap: 0, text: strings.Repeat("lorem ipsum dolor sit amet ", 25)},
		{name: "no whitespace at all", chunkSize: 32, overlap: 8, text: strings.Repeat("x", 500)},
		{name: "multibyte runes", chunkSize: 30, overlap: 6, text: strings.Repeat("héllo wörld ünïcode tæxt ", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.chunkSize, tt.overlap)
			chunks, err := s.Split(tt.text)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}

			runes := []rune(tt.text)
			covered := make([]bool, len(runes))
			for _, c := range chunks {
				chunkRunes := []rune(c.Text)
				for i, r := range chunkRunes {
					pos := c.Start + i
					if pos >= len(runes) {
						t.Fatalf("chunk %d overruns document (pos %d)", c.Index, pos)
					}
					if runes[pos] != r {
						t.Fatalf("chunk %d rune %d = %q, document has %q", c.Index, i, r, runes[pos])
					}
					covered[pos] = true
				}
			}
			for i, ok := range covered {
				if !ok {
					t.Fatalf("rune %d never covered by any chunk", i)
				}
			}
		})
	}
}

func TestSplitChunkSizeAndOrder(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("alpha beta gamma delta epsilon ", 40)

	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	prevStart := -1
	for _, c := range chunks {
		if n := len([]rune(c.Text)); n > s.ChunkSize {
			t.Errorf("chunk %d has %d runes, max %d", c.Index, n, s.ChunkSize)
		}
		if c.Start <= prevStart {
			t.Errorf("chunk %d starts at %d, not after previous start %d", c.Index, c.Start, prevStart)
		}
		prevStart = c.Start
	}
}

func TestSplitConsecutiveChunksOverlap(t *testing.T) {
	s := NewSplitter(60, 15)
	text := strings.Repeat("one two three four five six seven eight nine ten ", 20)

	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Start + len([]rune(chunks[i-1].Text))
		if chunks[i].Start >= prevEnd {
			t.Errorf("chunk %d starts at %d, previous ends at %d: no shared span", i, chunks[i].Start, prevEnd)
		}
	}
}

func TestSplitPrefersWordBoundaries(t *testing.T) {
	// Uniform short words keep a space inside every snap window.
	s := NewSplitter(40, 8)
	text := strings.Repeat("tiny mini deep vast calm ", 40)

	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	// Every non-final chunk should end just after whitespace so no word is
	// bisected. This text has spaces well inside the snap window.
	for _, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, " ") {
			t.Errorf("chunk %d ends mid-word: %q", c.Index, c.Text)
		}
	}
}

func TestNewSplitterClampsBadConfig(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		overlap     int
		wantSize    int
		wantOverlap int
	}{
		{name: "overlap >= size drops overlap", size: 10, overlap: 10, wantSize: 10, wantOverlap: 0},
		{name: "negative overlap drops overlap", size: 10, overlap: -1, wantSize: 10, wantOverlap: 0},
		{name: "non-positive size falls back", size: 0, overlap: 5, wantSize: 1000, wantOverlap: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.size, tt.overlap)
			if s.ChunkSize != tt.wantSize || s.Overlap != tt.wantOverlap {
				t.Errorf("got %d/%d, want %d/%d", s.ChunkSize, s.Overlap, tt.wantSize, tt.wantOverlap)
			}
		})
	}
}
