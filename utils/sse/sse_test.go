package sse

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestSendFramesCompactJSON(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := Send(w, map[string]interface{}{"type": "status", "message": "Scraping filings page"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "data: ") {
		t.Errorf("frame should start with data:, got %q", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Errorf("frame should end with a blank line, got %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("payload should be a single line, got %q", out)
	}
}

func TestSendEscapesControlCharacters(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := Send(w, map[string]string{"content": "line1\nline2 \"quoted\" back\\slash"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Contains(strings.TrimSuffix(out, "\n\n"), "\n") {
		t.Errorf("newline leaked into the frame body: %q", out)
	}
	if !strings.Contains(out, `\n`) || !strings.Contains(out, `\"`) || !strings.Contains(out, `\\`) {
		t.Errorf("expected JSON escapes in frame: %q", out)
	}
}

func TestSendStringPassthrough(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := Send(w, `{"already":"encoded"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "data: {\"already\":\"encoded\"}\n\n" {
		t.Errorf("unexpected frame: %q", got)
	}
}

func TestSendKeepAlive(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := SendKeepAlive(w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != ": keep-alive\n\n" {
		t.Errorf("keep-alive frame = %q", got)
	}
}
