package project

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/services"
	"github.com/huamanraj/investai-new/services/spaces"
	"github.com/huamanraj/investai-new/utils/apperr"
	"github.com/huamanraj/investai-new/utils/response"
)

// Handler serves the project and job endpoints
type Handler struct {
	store     *database.Store
	executor  *services.StepExecutor
	snapshots *services.SnapshotService
	blobs     *spaces.DocumentStore
	validate  *validator.Validate
}

// NewHandler creates the project handler
func NewHandler(store *database.Store, executor *services.StepExecutor, snapshots *services.SnapshotService, blobs *spaces.DocumentStore) *Handler {
	return &Handler{
		store:     store,
		executor:  executor,
		snapshots: snapshots,
		blobs:     blobs,
		validate:  validator.New(),
	}
}

// CreateProjectRequest is the POST /projects body
type CreateProjectRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Create handles POST /projects: validates the filings URL, inserts the
// project atomically, and kicks off ingestion without awaiting it
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return response.BadRequest(c, "A valid url is required")
	}

	companyName, err := services.ValidateFilingsURL(req.URL)
	if err != nil {
		return response.BadRequest(c, "URL does not match the expected filings page format")
	}

	project, err := h.store.CreateProjectIfAbsent(req.URL, companyName)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return response.BadRequest(c, "A project for this URL already exists")
		}
		return response.FromError(c, err)
	}

	if _, err := h.executor.Start(project.ID); err != nil {
		// A racing start already holds the job slot; the project stands
		if !apperr.Is(err, apperr.KindConflict) {
			log.Printf("[Projects] failed to start ingestion for %s: %v", project.ID, err)
		}
	}

	return response.Created(c, project)
}

// List handles GET /projects?skip=&limit=
func (h *Handler) List(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 20)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	projects, total, err := h.store.ListProjects(skip, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, projects, skip, limit, total)
}

// Get handles GET /projects/:id
func (h *Handler) Get(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	project, err := h.store.GetProject(projectID)
	if err != nil {
		return response.FromError(c, err)
	}

	payload := fiber.Map{"project": project}
	if job, err := h.store.GetLatestJob(projectID); err == nil {
		payload["job"] = job
	}
	return response.Success(c, payload)
}

// Status handles GET /projects/:id/status, reconciling a stale project
// lifecycle to the job's terminal state
func (h *Handler) Status(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	project, err := h.store.GetProject(projectID)
	if err != nil {
		return response.FromError(c, err)
	}

	job, jobErr := h.store.GetLatestJob(projectID)
	if jobErr == nil && !project.Status.IsTerminal() {
		switch job.Status {
		case model.JobStatusCompleted:
			h.store.UpdateProjectStatus(projectID, model.ProjectStatusCompleted, "")
			project.Status = model.ProjectStatusCompleted
		case model.JobStatusFailed:
			h.store.UpdateProjectStatus(projectID, model.ProjectStatusFailed, job.ErrorMessage)
			project.Status = model.ProjectStatusFailed
			project.ErrorMessage = job.ErrorMessage
		}
	}

	payload := fiber.Map{"project": project}
	if jobErr == nil {
		payload["job"] = job
	}
	return response.Success(c, payload)
}

// Snapshot handles GET /projects/:id/snapshot
func (h *Handler) Snapshot(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	snapshot, err := h.snapshots.Latest(c.Context(), projectID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return response.NotFound(c, "Snapshot not generated yet")
		}
		return response.FromError(c, err)
	}
	return response.Success(c, snapshot)
}

// Job handles GET /projects/:id/job
func (h *Handler) Job(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	job, err := h.store.GetLatestJob(projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, job)
}

// Cancel handles POST /projects/:id/cancel
func (h *Handler) Cancel(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	job, err := h.executor.Cancel(projectID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return response.NotFound(c, "No active job for this project")
		}
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Job cancelled", job)
}

// Resume handles POST /projects/:id/resume
func (h *Handler) Resume(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	if _, err := h.store.GetProject(projectID); err != nil {
		return response.FromError(c, err)
	}

	job, err := h.executor.Resume(projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Job resumed", job)
}

// Delete handles DELETE /projects/:id: cancels any running job, then
// deletes the project and everything under it, including its stored
// filings and cached snapshot
func (h *Handler) Delete(c *fiber.Ctx) error {
	projectID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid project ID")
	}

	if _, err := h.executor.Cancel(projectID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return response.FromError(c, err)
	}

	if err := h.store.DeleteProject(projectID); err != nil {
		return response.FromError(c, err)
	}

	h.snapshots.Invalidate(c.Context(), projectID)
	if err := h.blobs.RemoveProjectFilings(c.Context(), projectID); err != nil {
		// Rows are gone; orphaned blobs are logged, not surfaced
		log.Printf("[Projects] failed to remove filings for %s: %v", projectID, err)
	}

	return response.SuccessWithMessage(c, "Project deleted", nil)
}

// parseID reads the :id path parameter
func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}
