package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus represents the lifecycle state of an ingestion job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Step names in pipeline order
const (
	StepValidateURL      = "validate_url"
	StepScrapePage       = "scrape_page"
	StepDownloadPDFs     = "download_pdfs"
	StepUploadToCloud    = "upload_to_cloud"
	StepExtractText      = "extract_text"
	StepExtractData      = "extract_data"
	StepCreateEmbeddings = "create_embeddings"
	StepGenerateSnapshot = "generate_snapshot"
)

// StepOrder is the fixed pipeline sequence
var StepOrder = []string{
	StepValidateURL,
	StepScrapePage,
	StepDownloadPDFs,
	StepUploadToCloud,
	StepExtractText,
	StepExtractData,
	StepCreateEmbeddings,
	StepGenerateSnapshot,
}

// TotalSteps is the length of the pipeline
const TotalSteps = 8

// IngestionJob tracks one run of the ingestion pipeline for a project.
// At most one job per project may be pending or running at a time; the
// partial unique index on (project_id) enforces this in the database.
type IngestionJob struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ShortID            string         `gorm:"type:varchar(20);not null;uniqueIndex" json:"short_id"`
	ProjectID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Status             JobStatus      `gorm:"type:varchar(15);default:'pending'" json:"status"`
	CurrentStep        string         `gorm:"type:varchar(30)" json:"current_step"`
	CurrentStepIndex   int            `gorm:"default:0" json:"current_step_index"`
	LastSuccessfulStep string         `gorm:"type:varchar(30)" json:"last_successful_step"`
	FailedStep         string         `gorm:"type:varchar(30)" json:"failed_step,omitempty"`
	CanResume          bool           `gorm:"default:true" json:"can_resume"`
	ResumeData         datatypes.JSON `gorm:"type:jsonb" json:"-"`
	DocumentsProcessed int            `gorm:"default:0" json:"documents_processed"`
	EmbeddingsCreated  int            `gorm:"default:0" json:"embeddings_created"`
	RetryCount         int            `gorm:"default:0" json:"retry_count"`
	ErrorMessage       string         `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns identifiers
func (j *IngestionJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.ShortID == "" {
		j.ShortID = NewJobShortID()
	}
	return nil
}

// NewJobShortID generates the human-readable job handle
func NewJobShortID() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("job_%s", hex.EncodeToString(buf))
}

// IsTerminal reports whether no further step execution occurs without a resume
func (j *IngestionJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusCancelled
}

// IsActive reports whether the job holds the project's active slot
func (j *IngestionJob) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// IsStale reports whether a running job has not been touched within threshold
// and is presumed crashed
func (j *IngestionJob) IsStale(threshold time.Duration) bool {
	return j.Status == JobStatusRunning && time.Since(j.UpdatedAt) > threshold
}

// StepIndex returns the ordinal of a step name, or -1 if unknown
func StepIndex(name string) int {
	for i, s := range StepOrder {
		if s == name {
			return i
		}
	}
	return -1
}
