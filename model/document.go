package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentType classifies a filing by its reporting cadence
type DocumentType string

const (
	DocumentTypeAnnualReport    DocumentType = "annual_report"
	DocumentTypeQuarterlyReport DocumentType = "quarterly_report"
	DocumentTypeFinancials      DocumentType = "financials"
	DocumentTypeOther           DocumentType = "other"
)

// Document represents a single PDF filing owned by a project
type Document struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ProjectID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"project_id"`
	SpacesURL   string       `gorm:"type:text;not null" json:"spaces_url"`
	SpacesKey   string       `gorm:"type:text;not null" json:"spaces_key"`
	OriginalURL string       `gorm:"type:text" json:"original_url"`
	DocType     DocumentType `gorm:"type:varchar(30);default:'other'" json:"doc_type"`
	Period      string       `gorm:"type:varchar(50)" json:"period"`
	PageCount   int          `gorm:"default:0" json:"page_count"`

	// Relationships
	Project Project        `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Pages   []DocumentPage `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"pages,omitempty"`
}

// BeforeCreate assigns the identifier
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DocumentPage holds the extracted text of one PDF page (1-indexed)
type DocumentPage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index:idx_document_page,unique" json:"document_id"`
	PageNo     int       `gorm:"not null;index:idx_document_page,unique" json:"page_no"`
	Text       string    `gorm:"type:text" json:"text"`

	// Relationships
	Document Document    `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
	Chunks   []TextChunk `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
}

// BeforeCreate assigns the identifier
func (p *DocumentPage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
