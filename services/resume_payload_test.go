package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
)

func TestResumePayloadRoundTripThroughJobRow(t *testing.T) {
	docID := uuid.New()
	payload := &ResumePayload{
		ScrapeResults: []PDFInfo{{
			DocumentID: docID,
			SourceURL:  "https://host.example/a.pdf",
			Filename:   "a.pdf",
			DocType:    model.DocumentTypeAnnualReport,
			Period:     "2023",
		}},
	}
	payload.PDFInfo = payload.ScrapeResults
	payload.PutBuffer(docID, []byte("%PDF-1.4 fake"))
	payload.PutExtraction(docID, json.RawMessage(`{"revenue": 100}`))

	encoded, err := payload.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	job := &model.IngestionJob{ResumeData: encoded}
	loaded, err := LoadResumePayload(job)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(loaded.PDFInfo) != 1 || loaded.PDFInfo[0].DocumentID != docID {
		t.Fatalf("pdf info not preserved: %+v", loaded.PDFInfo)
	}

	data, ok, err := loaded.Buffer(docID)
	if err != nil || !ok {
		t.Fatalf("buffer missing after round trip: ok=%v err=%v", ok, err)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("buffer content = %q", string(data))
	}

	extraction, ok := loaded.Extraction(docID)
	if !ok {
		t.Fatal("extraction missing after round trip")
	}
	if string(extraction) != `{"revenue": 100}` {
		t.Errorf("extraction content = %s", string(extraction))
	}
}

func TestLoadResumePayloadFromEmptyJob(t *testing.T) {
	payload, err := LoadResumePayload(&model.IngestionJob{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.PDFInfo) != 0 || len(payload.PDFBuffers) != 0 {
		t.Errorf("fresh payload not empty: %+v", payload)
	}
}

func TestBufferAbsentForUnknownDocument(t *testing.T) {
	payload := &ResumePayload{}
	if _, ok, err := payload.Buffer(uuid.New()); ok || err != nil {
		t.Errorf("expected absent buffer, got ok=%v err=%v", ok, err)
	}
}
