package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/utils/response"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	store *database.Store
}

// NewHealthHandler creates the health handler
func NewHealthHandler(store *database.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "database unreachable")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
