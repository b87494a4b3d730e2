package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CompanySnapshot is the cached summary generated for a project.
// Regeneration inserts a new row with an incremented version; prior
// versions are kept untouched.
type CompanySnapshot struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	ProjectID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	SnapshotData datatypes.JSON `gorm:"type:jsonb" json:"snapshot_data"`
	Version      int            `gorm:"not null;default:1" json:"version"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the identifier
func (s *CompanySnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
