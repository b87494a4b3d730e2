package services

import (
	"strings"
	"testing"
)

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(400, 80, 10)
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := c.Chunk("   \n\t  "); chunks != nil {
		t.Errorf("expected no chunks for whitespace text, got %d", len(chunks))
	}
}

func TestChunkShortTextIsSinglePiece(t *testing.T) {
	c := NewChunker(400, 80, 10)
	chunks := c.Chunk("revenue grew 12% year over year")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "revenue grew 12% year over year" {
		t.Errorf("unexpected chunk content: %q", chunks[0])
	}
}

func TestChunkRespectsSizeAndOverlap(t *testing.T) {
	c := NewChunker(100, 20, 10)
	text := strings.Repeat("total assets 1234 ", 60)

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if len([]rune(chunk)) > 100 {
			t.Errorf("chunk %d is %d runes, exceeds size 100", i, len([]rune(chunk)))
		}
	}

	// Consecutive chunks share text from the overlap window
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-10:]
		if !strings.Contains(chunks[i], tail) {
			t.Fatalf("chunk %d does not repeat the tail %q of chunk %d", i, tail, i-1)
		}
	}
}

func TestChunkCapsPerPage(t *testing.T) {
	c := NewChunker(50, 10, 3)
	text := strings.Repeat("net income for the period was strong ", 100)

	chunks := c.Chunk(text)
	if len(chunks) > 3 {
		t.Errorf("got %d chunks, cap is 3", len(chunks))
	}
}

func TestChunkAvoidsSplittingWords(t *testing.T) {
	c := NewChunker(50, 10, 10)
	text := strings.Repeat("depreciation amortization ", 20)

	for i, chunk := range c.Chunk(text) {
		if strings.HasSuffix(chunk, "depreciati") || strings.HasSuffix(chunk, "amortizat") {
			t.Errorf("chunk %d ends mid-word: %q", i, chunk)
		}
	}
}
