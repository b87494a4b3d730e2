package services

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
	"gorm.io/datatypes"
)

// PDFInfo describes one filing discovered during scraping. The document id
// is assigned here so later steps key their outputs before the row exists.
type PDFInfo struct {
	DocumentID uuid.UUID          `json:"document_id"`
	SourceURL  string             `json:"source_url"`
	Filename   string             `json:"filename"`
	Title      string             `json:"title"`
	DocType    model.DocumentType `json:"doc_type"`
	Period     string             `json:"period"`
}

// ResumePayload carries completed-step outputs forward across failures and
// resumes. It is persisted opaquely on the job row after every step commit;
// each step skips sub-work whose output is already present.
type ResumePayload struct {
	ScrapeResults     []PDFInfo                  `json:"scrape_results,omitempty"`
	PDFInfo           []PDFInfo                  `json:"pdf_info,omitempty"`
	PDFBuffers        map[string]string          `json:"pdf_buffers,omitempty"`        // doc id -> base64 PDF bytes
	ExtractionResults map[string]json.RawMessage `json:"extraction_results,omitempty"` // doc id -> extraction JSON
}

// LoadResumePayload decodes the payload stored on a job row
func LoadResumePayload(job *model.IngestionJob) (*ResumePayload, error) {
	payload := &ResumePayload{}
	if len(job.ResumeData) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(job.ResumeData, payload); err != nil {
		return nil, fmt.Errorf("failed to decode resume payload: %w", err)
	}
	return payload, nil
}

// Encode serializes the payload for storage on the job row
func (p *ResumePayload) Encode() (datatypes.JSON, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resume payload: %w", err)
	}
	return datatypes.JSON(data), nil
}

// PutBuffer stores a downloaded PDF keyed by its document id
func (p *ResumePayload) PutBuffer(documentID uuid.UUID, data []byte) {
	if p.PDFBuffers == nil {
		p.PDFBuffers = make(map[string]string)
	}
	p.PDFBuffers[documentID.String()] = base64.StdEncoding.EncodeToString(data)
}

// Buffer returns the downloaded PDF for a document, if present
func (p *ResumePayload) Buffer(documentID uuid.UUID) ([]byte, bool, error) {
	encoded, ok := p.PDFBuffers[documentID.String()]
	if !ok {
		return nil, false, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode pdf buffer for %s: %w", documentID, err)
	}
	return data, true, nil
}

// PutExtraction stores a document's extraction JSON
func (p *ResumePayload) PutExtraction(documentID uuid.UUID, data json.RawMessage) {
	if p.ExtractionResults == nil {
		p.ExtractionResults = make(map[string]json.RawMessage)
	}
	p.ExtractionResults[documentID.String()] = data
}

// Extraction returns a document's extraction JSON, if present
func (p *ResumePayload) Extraction(documentID uuid.UUID) (json.RawMessage, bool) {
	data, ok := p.ExtractionResults[documentID.String()]
	return data, ok
}
