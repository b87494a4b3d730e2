package project

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/huamanraj/investai-new/services"
	"github.com/huamanraj/investai-new/utils/response"
	"github.com/huamanraj/investai-new/utils/sse"
)

// StreamHandler serves the job progress SSE endpoint
type StreamHandler struct {
	handler   *Handler
	bus       *services.ProgressBus
	keepAlive time.Duration
}

// NewStreamHandler creates the stream handler
func NewStreamHandler(handler *Handler, bus *services.ProgressBus, keepAlive time.Duration) *StreamHandler {
	return &StreamHandler{
		handler:   handler,
		bus:       bus,
		keepAlive: keepAlive,
	}
}

// ProgressStream handles GET /projects/:id/progress-stream. The stream
// carries the job's events in publish order and closes when the job
// reaches a terminal state. Quiet periods are bridged with keep-alive
// comments so proxies do not drop the connection.
func (h *StreamHandler) ProgressStream(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	job, err := h.handler.store.GetLatestJob(projectID)
	if err != nil {
		return response.FromError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	jobID := job.ID
	bus := h.bus
	keepAlive := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		events, unsubscribe := bus.Subscribe(jobID)
		defer unsubscribe()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := sse.Send(w, event); err != nil {
					// Client disconnected; only this subscriber goes away
					return
				}
				if event.Type == services.EventStreamEnd {
					return
				}
				ticker.Reset(keepAlive)
			case <-ticker.C:
				if err := sse.SendKeepAlive(w); err != nil {
					return
				}
			}
		}
	})

	return nil
}
