package router

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/config"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/handlers"
	chat_handlers "github.com/huamanraj/investai-new/handlers/chat"
	project_handlers "github.com/huamanraj/investai-new/handlers/project"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/services"
	"github.com/huamanraj/investai-new/services/gradient"
	"github.com/huamanraj/investai-new/services/spaces"
	"github.com/huamanraj/investai-new/utils/cache"
)

// SetupRoutes constructs the service graph and registers every route
func SetupRoutes(app *fiber.App, store *database.Store, snapshotCache *cache.SnapshotCache, getEnv *config.EnviornmentVariable) (*services.ProgressBus, error) {
	// Shared provider clients
	gradientClient := gradient.NewClient(gradient.Config{APIKey: getEnv.MODEL_ACCESS_KEY})
	embeddingHTTP := gradient.NewClient(gradient.Config{APIKey: getEnv.MODEL_ACCESS_KEY, Timeout: gradient.DefaultTimeout})
	embeddings := gradient.NewEmbeddingClient(embeddingHTTP, getEnv.EMBEDDING_MODEL, getEnv.EMBEDDING_DIMENSIONS)
	inference := gradient.NewInferenceClient(gradientClient, getEnv.EXTRACTION_MODEL)
	chatClient := gradient.NewChatClient(gradientClient, getEnv.CHAT_MODEL)

	blobs, err := spaces.NewDocumentStore(spaces.Config{
		AccessKey: getEnv.DO_SPACES_ACCESS_KEY,
		SecretKey: getEnv.DO_SPACES_SECRET_KEY,
		Bucket:    getEnv.DO_SPACES_BUCKET,
		Region:    getEnv.DO_SPACES_REGION,
		Endpoint:  getEnv.DO_SPACES_ENDPOINT,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filings document store: %w", err)
	}

	// Progress bus; late subscribers get the job's persisted state
	bus := services.NewProgressBus(func(jobID uuid.UUID) (services.Event, bool, services.StreamEndReason) {
		job, err := store.GetJob(jobID)
		if err != nil {
			log.Printf("[Router] connected-state lookup failed for job %s: %v", jobID, err)
			return services.ConnectedEvent(jobID, false, "connected"), false, ""
		}
		if job.IsTerminal() {
			reason := services.StreamEndCompleted
			switch job.Status {
			case model.JobStatusFailed:
				reason = services.StreamEndError
			case model.JobStatusCancelled:
				reason = services.StreamEndCancelled
			}
			return services.ConnectedEvent(jobID, true, "job already finished: "+string(job.Status)), true, reason
		}
		return services.ConnectedEvent(jobID, false, "connected; current step "+job.CurrentStep), false, ""
	})

	cancels := services.NewCancelRegistry()
	scraper := services.NewScraper(time.Duration(getEnv.SCRAPE_TIMEOUT_SECONDS) * time.Second)
	pdfExtractor := services.NewPDFExtractor()
	chunker := services.NewChunker(getEnv.CHUNK_SIZE, getEnv.CHUNK_OVERLAP, getEnv.MAX_CHUNKS_PER_PAGE)
	snapshots := services.NewSnapshotService(store, inference, snapshotCache)

	executor := services.NewStepExecutor(
		store, bus, cancels,
		scraper, pdfExtractor, chunker,
		blobs, embeddings, inference, snapshots,
		getEnv,
	)

	chatService := services.NewChatService(store)
	retrieval := services.NewRetrievalService(store, embeddings, chatClient, getEnv)

	// Handlers
	healthHandler := handlers.NewHealthHandler(store)
	projectHandler := project_handlers.NewHandler(store, executor, snapshots, blobs)
	streamHandler := project_handlers.NewStreamHandler(projectHandler, bus,
		time.Duration(getEnv.KEEPALIVE_SECONDS)*time.Second)
	chatHandler := chat_handlers.NewHandler(store, chatService, retrieval)

	// Routes
	app.Get("/health", healthHandler.Check)

	projects := app.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:id", projectHandler.Get)
	projects.Get("/:id/status", projectHandler.Status)
	projects.Get("/:id/snapshot", projectHandler.Snapshot)
	projects.Get("/:id/job", projectHandler.Job)
	projects.Post("/:id/cancel", projectHandler.Cancel)
	projects.Post("/:id/resume", projectHandler.Resume)
	projects.Get("/:id/progress-stream", streamHandler.ProgressStream)
	projects.Delete("/:id", projectHandler.Delete)

	chats := app.Group("/chats")
	chats.Post("/", chatHandler.Create)
	chats.Get("/", chatHandler.List)
	chats.Get("/:id", chatHandler.Get)
	chats.Delete("/:id", chatHandler.Delete)
	chats.Post("/:id/messages", chatHandler.SendMessage)

	return bus, nil
}
