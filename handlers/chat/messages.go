package chat

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/services"
	"github.com/huamanraj/investai-new/utils/apperr"
	"github.com/huamanraj/investai-new/utils/response"
	"github.com/huamanraj/investai-new/utils/sse"
)

// SendMessageRequest is the POST /chats/:id/messages body
type SendMessageRequest struct {
	Content    string      `json:"content" validate:"required"`
	ProjectIDs []uuid.UUID `json:"project_ids" validate:"required,min=1"`
}

// SendMessage handles POST /chats/:id/messages: persists the user turn,
// runs retrieval, and streams the model answer token by token
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid chat ID")
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return response.BadRequest(c, "content and a non-empty project_ids are required")
	}

	if _, err := h.store.GetChat(chatID); err != nil {
		return response.FromError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	retrieval := h.retrieval
	content := req.Content
	projectIDs := req.ProjectIDs

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The fiber context is not valid inside the stream writer; a write
		// failure (client gone) cancels the pipeline and the upstream call
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		emit := func(event services.Event) error {
			if err := sse.Send(w, event); err != nil {
				cancel()
				return err
			}
			return nil
		}

		if err := retrieval.Answer(ctx, chatID, content, projectIDs, emit); err != nil {
			if apperr.Is(err, apperr.KindCancelled) {
				return
			}
			sse.Send(w, services.Event{
				Type:      services.EventError,
				Message:   err.Error(),
				Timestamp: time.Now().UTC(),
			})
		}
	})

	return nil
}
