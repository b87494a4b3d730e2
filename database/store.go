package database

import (
	"errors"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/utils/apperr"
	"gorm.io/gorm"
)

// wrapDBError translates GORM errors into the application error taxonomy
func wrapDBError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(op + ": record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(op + ": already exists")
	case errors.Is(err, gorm.ErrInvalidTransaction), errors.Is(err, gorm.ErrInvalidDB):
		return apperr.Unavailable(op+": database unavailable", err)
	default:
		return apperr.Internal(op, err)
	}
}

// CreateProjectIfAbsent atomically inserts a project for the given URL.
// A second insert for the same URL surfaces the uniqueness conflict.
func (s *Store) CreateProjectIfAbsent(sourceURL, companyName string) (*model.Project, error) {
	project := &model.Project{
		SourceURL:   sourceURL,
		CompanyName: companyName,
		Status:      model.ProjectStatusPending,
	}
	if err := s.db.Create(project).Error; err != nil {
		return nil, wrapDBError("create project", err)
	}
	return project, nil
}

// GetProject fetches a project with its documents
func (s *Store) GetProject(id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := s.db.Preload("Documents").First(&project, "id = ?", id).Error
	if err != nil {
		return nil, wrapDBError("get project", err)
	}
	return &project, nil
}

// ListProjects returns projects most-recent first
func (s *Store) ListProjects(skip, limit int) ([]model.Project, int64, error) {
	var total int64
	if err := s.db.Model(&model.Project{}).Count(&total).Error; err != nil {
		return nil, 0, wrapDBError("count projects", err)
	}

	var projects []model.Project
	err := s.db.Order("created_at DESC").Offset(skip).Limit(limit).Find(&projects).Error
	if err != nil {
		return nil, 0, wrapDBError("list projects", err)
	}
	return projects, total, nil
}

// ListProjectsByIDs fetches the named projects
func (s *Store) ListProjectsByIDs(ids []uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, wrapDBError("list projects by ids", err)
	}
	return projects, nil
}

// UpdateProjectStatus moves the project lifecycle forward
func (s *Store) UpdateProjectStatus(id uuid.UUID, status model.ProjectStatus, errorMessage string) error {
	updates := map[string]interface{}{"status": status, "error_message": errorMessage}
	err := s.db.Model(&model.Project{}).Where("id = ?", id).Updates(updates).Error
	return wrapDBError("update project status", err)
}

// DeleteProject removes the project; the schema cascades to all descendants
func (s *Store) DeleteProject(id uuid.UUID) error {
	result := s.db.Delete(&model.Project{}, "id = ?", id)
	if result.Error != nil {
		return wrapDBError("delete project", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("delete project: record not found")
	}
	return nil
}

// CreateDocument inserts a document row
func (s *Store) CreateDocument(doc *model.Document) error {
	return wrapDBError("create document", s.db.Create(doc).Error)
}

// GetDocument fetches a single document
func (s *Store) GetDocument(id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := s.db.First(&doc, "id = ?", id).Error; err != nil {
		return nil, wrapDBError("get document", err)
	}
	return &doc, nil
}

// ListDocumentsByProject returns a project's documents
func (s *Store) ListDocumentsByProject(projectID uuid.UUID) ([]model.Document, error) {
	var docs []model.Document
	err := s.db.Where("project_id = ?", projectID).Order("created_at ASC").Find(&docs).Error
	if err != nil {
		return nil, wrapDBError("list documents", err)
	}
	return docs, nil
}

// UpdateDocumentPageCount records the page count discovered during extraction
func (s *Store) UpdateDocumentPageCount(id uuid.UUID, pageCount int) error {
	err := s.db.Model(&model.Document{}).Where("id = ?", id).
		Update("page_count", pageCount).Error
	return wrapDBError("update document page count", err)
}

// CreatePages inserts extracted pages in one batch
func (s *Store) CreatePages(pages []model.DocumentPage) error {
	if len(pages) == 0 {
		return nil
	}
	return wrapDBError("create pages", s.db.Create(&pages).Error)
}

// CountPagesByDocument reports how many pages are already persisted,
// used to skip re-extraction on resume
func (s *Store) CountPagesByDocument(documentID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&model.DocumentPage{}).Where("document_id = ?", documentID).Count(&count).Error
	return count, wrapDBError("count pages", err)
}

// ListPagesByDocument returns a document's pages in order
func (s *Store) ListPagesByDocument(documentID uuid.UUID) ([]model.DocumentPage, error) {
	var pages []model.DocumentPage
	err := s.db.Where("document_id = ?", documentID).Order("page_no ASC").Find(&pages).Error
	if err != nil {
		return nil, wrapDBError("list pages", err)
	}
	return pages, nil
}

// CreateChunkWithEmbedding inserts a chunk and its vector together
func (s *Store) CreateChunkWithEmbedding(chunk *model.TextChunk, embedding *model.Embedding) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chunk).Error; err != nil {
			return err
		}
		embedding.ChunkID = chunk.ID
		return tx.Create(embedding).Error
	})
	return wrapDBError("create chunk with embedding", err)
}

// CountChunksByDocument reports persisted chunks for a document, used to
// skip re-embedding on resume
func (s *Store) CountChunksByDocument(documentID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&model.TextChunk{}).
		Joins("JOIN document_pages ON document_pages.id = text_chunks.page_id").
		Where("document_pages.document_id = ?", documentID).
		Count(&count).Error
	return count, wrapDBError("count chunks", err)
}

// CreateExtractionResult inserts the structured extraction for a document
func (s *Store) CreateExtractionResult(result *model.ExtractionResult) error {
	return wrapDBError("create extraction result", s.db.Create(result).Error)
}

// GetExtractionResultByDocument fetches the latest extraction for a document
func (s *Store) GetExtractionResultByDocument(documentID uuid.UUID) (*model.ExtractionResult, error) {
	var result model.ExtractionResult
	err := s.db.Where("document_id = ?", documentID).Order("created_at DESC").First(&result).Error
	if err != nil {
		return nil, wrapDBError("get extraction result", err)
	}
	return &result, nil
}

// CreateSnapshot inserts a new snapshot version for a project. Prior
// versions are kept untouched.
func (s *Store) CreateSnapshot(snapshot *model.CompanySnapshot) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Model(&model.CompanySnapshot{}).
			Where("project_id = ?", snapshot.ProjectID).
			Select("COALESCE(MAX(version), 0)").Scan(&maxVersion).Error; err != nil {
			return err
		}
		snapshot.Version = maxVersion + 1
		return tx.Create(snapshot).Error
	})
	return wrapDBError("create snapshot", err)
}

// GetLatestSnapshot returns the highest-version snapshot for a project
func (s *Store) GetLatestSnapshot(projectID uuid.UUID) (*model.CompanySnapshot, error) {
	var snapshot model.CompanySnapshot
	err := s.db.Where("project_id = ?", projectID).Order("version DESC").First(&snapshot).Error
	if err != nil {
		return nil, wrapDBError("get snapshot", err)
	}
	return &snapshot, nil
}
