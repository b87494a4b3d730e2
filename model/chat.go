package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRole represents the role of the message sender
type MessageRole string

const (
	MessageRoleUser MessageRole = "user"
	MessageRoleAI   MessageRole = "ai"
)

// ProjectIDSet is the set of projects a message was scoped to when it was
// sent. Retrieval scope is message-local, not chat-global. Stored as JSONB.
type ProjectIDSet []uuid.UUID

// Scan implements the sql.Scanner interface for reading from database
func (s *ProjectIDSet) Scan(value interface{}) error {
	if value == nil {
		*s = ProjectIDSet{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal ProjectIDSet value")
	}

	if len(bytes) == 0 {
		*s = ProjectIDSet{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for writing to database
func (s ProjectIDSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Contains reports whether the set holds the given project id
func (s ProjectIDSet) Contains(id uuid.UUID) bool {
	for _, pid := range s {
		if pid == id {
			return true
		}
	}
	return false
}

// Chat is a conversation root, independent of project lifetime
type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`

	// Relationships
	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// BeforeCreate assigns the identifier
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Message is a single turn in a chat, ordered by creation time
type Message struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
	ChatID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"chat_id"`
	Role       MessageRole  `gorm:"type:varchar(10);not null" json:"role"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	ProjectIDs ProjectIDSet `gorm:"type:jsonb;default:'[]'" json:"project_ids"`

	// Relationships
	Chat Chat `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the identifier
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
