package chat

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/services"
	"github.com/huamanraj/investai-new/utils/response"
)

// Handler serves the chat endpoints
type Handler struct {
	store     *database.Store
	chats     *services.ChatService
	retrieval *services.RetrievalService
	validate  *validator.Validate
}

// NewHandler creates the chat handler
func NewHandler(store *database.Store, chats *services.ChatService, retrieval *services.RetrievalService) *Handler {
	return &Handler{
		store:     store,
		chats:     chats,
		retrieval: retrieval,
		validate:  validator.New(),
	}
}

// CreateChatRequest is the POST /chats body
type CreateChatRequest struct {
	Title      string      `json:"title"`
	ProjectIDs []uuid.UUID `json:"project_ids" validate:"required,min=1"`
}

// Create handles POST /chats
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return response.BadRequest(c, "project_ids must contain at least one project")
	}

	chat, err := h.chats.CreateChat(req.Title, req.ProjectIDs)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, chat)
}

// List handles GET /chats
func (h *Handler) List(c *fiber.Ctx) error {
	chats, err := h.store.ListChats()
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, chats)
}

// Get handles GET /chats/:id
func (h *Handler) Get(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid chat ID")
	}

	chat, err := h.store.GetChat(chatID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, chat)
}

// Delete handles DELETE /chats/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid chat ID")
	}

	if err := h.store.DeleteChat(chatID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Chat deleted", nil)
}
