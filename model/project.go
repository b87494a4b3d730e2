package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus represents the coarse lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusPending     ProjectStatus = "pending"
	ProjectStatusScraping    ProjectStatus = "scraping"
	ProjectStatusDownloading ProjectStatus = "downloading"
	ProjectStatusProcessing  ProjectStatus = "processing"
	ProjectStatusCompleted   ProjectStatus = "completed"
	ProjectStatusFailed      ProjectStatus = "failed"
)

// Project represents one company filings page being ingested
type Project struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	SourceURL    string         `gorm:"type:text;not null;uniqueIndex" json:"source_url"`
	CompanyName  string         `gorm:"type:varchar(255);not null" json:"company_name"`
	Status       ProjectStatus  `gorm:"type:varchar(20);default:'pending'" json:"status"`
	ErrorMessage string         `gorm:"type:text" json:"error_message,omitempty"`

	// Relationships
	Documents []Document        `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Jobs      []IngestionJob    `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"jobs,omitempty"`
	Snapshots []CompanySnapshot `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"snapshots,omitempty"`
}

// BeforeCreate assigns the identifier
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the project lifecycle has finished
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusFailed
}
