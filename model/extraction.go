package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExtractionResult holds the structured data pulled out of one document by the
// extraction model, plus the model's citations and reasoning
type ExtractionResult struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	Data       datatypes.JSON `gorm:"type:jsonb" json:"data"`
	Citations  datatypes.JSON `gorm:"type:jsonb" json:"citations,omitempty"`
	Reasoning  string         `gorm:"type:text" json:"reasoning,omitempty"`

	// Relationships
	Document Document `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the identifier
func (r *ExtractionResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
