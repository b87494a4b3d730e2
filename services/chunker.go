package services

import (
	"strings"
	"unicode"
)

// Chunker splits page text into overlapping retrieval units
type Chunker struct {
	chunkSize  int // characters per chunk
	overlap    int // characters shared with the previous chunk
	maxPerPage int // hard cap per page
}

// NewChunker creates a chunker with the given sizing
func NewChunker(chunkSize, overlap, maxPerPage int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 400
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	if maxPerPage <= 0 {
		maxPerPage = 10
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap, maxPerPage: maxPerPage}
}

// Chunk cuts the text into at most maxPerPage pieces of roughly chunkSize
// characters, overlapping by overlap characters. Cuts land on whitespace
// where possible so words are not split.
func (c *Chunker) Chunk(text string) []string {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) && len(chunks) < c.maxPerPage {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back up to the nearest whitespace to avoid splitting a word
			cut := end
			for cut > start+c.chunkSize/2 && !unicode.IsSpace(runes[cut-1]) {
				cut--
			}
			if cut > start+c.chunkSize/2 {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}

// normalizeWhitespace collapses runs of whitespace into single spaces
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
