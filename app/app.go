package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/huamanraj/investai-new/api"
	"github.com/huamanraj/investai-new/config"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/router"
	"github.com/huamanraj/investai-new/services"
	"github.com/huamanraj/investai-new/services/cron"
	"github.com/huamanraj/investai-new/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Redis is optional; snapshot reads fall back to the database
	var snapshotCache *cache.SnapshotCache
	if getEnv.REDIS_URL != "" {
		snapshotCache, err = cache.NewSnapshotCache(getEnv.REDIS_URL, 24*time.Hour)
		if err != nil {
			log.Printf("Warning: failed to connect to Redis: %v. Snapshot caching disabled.", err)
			snapshotCache = nil
		}
	}

	// Stale-job sweeper
	var cronManager *cron.Manager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewManager(store,
			time.Duration(getEnv.STALE_JOB_THRESHOLD_MINUTES)*time.Minute)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: failed to start cron jobs: %v", err)
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if snapshotCache != nil {
			snapshotCache.Close()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Setup Routes
	bus, err := router.SetupRoutes(app, store, snapshotCache, getEnv)
	if err != nil {
		return err
	}

	// Close live streams before the listener goes away
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("Shutting down...")
		bus.CloseAll(services.StreamEndShutdown)
		app.Shutdown()
	}()

	// Get the PORT & Start the Server
	return server.Run()
}
