package services

import (
	"bytes"
	"testing"
)

func TestSanitizePDFRemovesTrailingGarbage(t *testing.T) {
	pdf := []byte("%PDF-1.4\nsome objects\n%%EOF\n")
	dirty := append(append([]byte{}, pdf...), []byte("<html>tracking pixel soup</html>")...)

	cleaned := sanitizePDF(dirty)
	if !bytes.Equal(cleaned, pdf) {
		t.Errorf("trailing garbage not removed: %q", cleaned)
	}
}

func TestSanitizePDFKeepsCleanContent(t *testing.T) {
	pdf := []byte("%PDF-1.4\nsome objects\n%%EOF\n")
	if got := sanitizePDF(pdf); !bytes.Equal(got, pdf) {
		t.Errorf("clean pdf was modified: %q", got)
	}
}

func TestSanitizePDFIgnoresNonPDF(t *testing.T) {
	content := []byte("<html>not a pdf %%EOF extra</html>")
	if got := sanitizePDF(content); !bytes.Equal(got, content) {
		t.Error("non-pdf content should pass through untouched")
	}
}

func TestExtractPagesRejectsEmptyInput(t *testing.T) {
	p := NewPDFExtractor()
	if _, err := p.ExtractPages(nil); err == nil {
		t.Error("expected an error for empty content")
	}
	if _, err := p.ExtractPages([]byte("not a pdf at all")); err == nil {
		t.Error("expected an error for non-pdf content")
	}
}
