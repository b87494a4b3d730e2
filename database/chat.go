package database

import (
	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/utils/apperr"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// CreateChat inserts a chat
func (s *Store) CreateChat(chat *model.Chat) error {
	return wrapDBError("create chat", s.db.Create(chat).Error)
}

// GetChat fetches a chat with its messages in chronological order
func (s *Store) GetChat(id uuid.UUID) (*model.Chat, error) {
	var chat model.Chat
	err := s.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&chat, "id = ?", id).Error
	if err != nil {
		return nil, wrapDBError("get chat", err)
	}
	return &chat, nil
}

// ListChats returns chats most-recent first
func (s *Store) ListChats() ([]model.Chat, error) {
	var chats []model.Chat
	if err := s.db.Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, wrapDBError("list chats", err)
	}
	return chats, nil
}

// DeleteChat removes a chat and its messages
func (s *Store) DeleteChat(id uuid.UUID) error {
	result := s.db.Delete(&model.Chat{}, "id = ?", id)
	if result.Error != nil {
		return wrapDBError("delete chat", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("delete chat: record not found")
	}
	return nil
}

// CreateMessage inserts a message
func (s *Store) CreateMessage(message *model.Message) error {
	return wrapDBError("create message", s.db.Create(message).Error)
}

// ListMessagesByChat returns a chat's messages in chronological order
func (s *Store) ListMessagesByChat(chatID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error
	if err != nil {
		return nil, wrapDBError("list messages", err)
	}
	return messages, nil
}

// KNNResult is one retrieval hit with the context the prompt builder needs
type KNNResult struct {
	ChunkID  uuid.UUID `json:"chunk_id"`
	Content  string    `json:"content"`
	Field    string    `json:"field"`
	PageNo   int       `json:"page_no"`
	DocType  string    `json:"doc_type"`
	Period   string    `json:"period"`
	Company  string    `json:"company"`
	Distance float64   `json:"distance"`
}

// KNN runs a cosine-distance nearest-neighbour search over chunks whose
// owning document belongs to the supplied project set. Results are ordered
// ascending by distance with chunk id as the deterministic tie-break.
// An empty project set is rejected rather than searching globally.
func (s *Store) KNN(queryVector []float32, projectIDs []uuid.UUID, k int) ([]KNNResult, error) {
	if len(projectIDs) == 0 {
		return nil, apperr.Validation("knn: project set must not be empty")
	}
	if k <= 0 {
		return nil, apperr.Validation("knn: k must be positive")
	}

	var results []KNNResult
	err := s.db.Raw(
		`SELECT text_chunks.id AS chunk_id,
		        text_chunks.content AS content,
		        text_chunks.field AS field,
		        document_pages.page_no AS page_no,
		        documents.doc_type AS doc_type,
		        documents.period AS period,
		        projects.company_name AS company,
		        embeddings.vector <=> ? AS distance
		 FROM embeddings
		 JOIN text_chunks ON text_chunks.id = embeddings.chunk_id
		 JOIN document_pages ON document_pages.id = text_chunks.page_id
		 JOIN documents ON documents.id = document_pages.document_id
		 JOIN projects ON projects.id = documents.project_id
		 WHERE documents.project_id IN ?
		 ORDER BY distance ASC, text_chunks.id ASC
		 LIMIT ?`,
		pgvector.NewVector(queryVector), projectIDs, k,
	).Scan(&results).Error
	if err != nil {
		return nil, wrapDBError("knn search", err)
	}
	return results, nil
}
