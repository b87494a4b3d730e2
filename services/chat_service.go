package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/utils/apperr"
)

// ChatService manages chat lifecycles
type ChatService struct {
	store *database.Store
}

// NewChatService creates a chat service
func NewChatService(store *database.Store) *ChatService {
	return &ChatService{store: store}
}

// CreateChat creates a chat, titling it from the selected project names
// when no title is supplied
func (s *ChatService) CreateChat(title string, projectIDs []uuid.UUID) (*model.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		derived, err := s.titleFromProjects(projectIDs)
		if err != nil {
			return nil, err
		}
		title = derived
	}

	chat := &model.Chat{Title: title}
	if err := s.store.CreateChat(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// titleFromProjects derives a chat title from the selected companies
func (s *ChatService) titleFromProjects(projectIDs []uuid.UUID) (string, error) {
	if len(projectIDs) == 0 {
		return "New chat", nil
	}

	projects, err := s.store.ListProjectsByIDs(projectIDs)
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "", apperr.Validation("no projects found for the given ids")
	}

	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.CompanyName)
	}
	title := strings.Join(names, ", ")
	if len(title) > 120 {
		title = title[:117] + "..."
	}
	return title, nil
}
