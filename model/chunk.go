package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDim is the fixed dimension of the vector column. It must match
// the embedding model's output and the vector(...) type below.
const EmbeddingDim = 1024

// TextChunk is a retrieval unit cut from a document page (0-indexed within the page)
type TextChunk struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	PageID     uuid.UUID `gorm:"type:uuid;not null;index:idx_page_chunk,unique" json:"page_id"`
	ChunkIndex int       `gorm:"not null;index:idx_page_chunk,unique" json:"chunk_index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Field      string    `gorm:"type:varchar(100)" json:"field,omitempty"`

	// Relationships
	Page      DocumentPage `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE" json:"-"`
	Embedding *Embedding   `gorm:"foreignKey:ChunkID;constraint:OnDelete:CASCADE" json:"embedding,omitempty"`
}

// BeforeCreate assigns the identifier
func (c *TextChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Embedding holds the fixed-dimension vector for exactly one chunk.
// The column dimension is pinned at migration time; pgvector rejects
// mismatched inserts.
type Embedding struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	ChunkID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"chunk_id"`
	Vector    pgvector.Vector `gorm:"type:vector(1024)" json:"-"`

	// Relationships
	Chunk TextChunk `gorm:"foreignKey:ChunkID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the identifier
func (e *Embedding) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
