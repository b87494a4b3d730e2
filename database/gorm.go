package database

import (
	"fmt"
	"log"
	"time"

	"github.com/huamanraj/investai-new/config"
	"github.com/huamanraj/investai-new/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the GORM connection with the typed queries the services use
type Store struct {
	db *gorm.DB
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM() (*Store, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getEnv.DB_HOST,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_PORT,
		getEnv.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if getEnv.GO_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	// Open GORM connection
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		log.Println("Unable to connect to PostgreSQL with GORM:", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to PostgreSQL Database with GORM.")

	return &Store{db: db}, nil
}

// NewStore wraps an existing GORM connection (used by tests)
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Init runs AutoMigrate plus the DDL GORM cannot express: the pgvector
// extension, the cosine ANN index, and the one-active-job partial unique
// index. A missing ANN index is a startup error, not a degradation.
func (s *Store) Init() error {
	log.Println("Running GORM AutoMigrate for all models...")

	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	err := s.db.AutoMigrate(
		&model.Project{},
		&model.Document{},
		&model.DocumentPage{},
		&model.TextChunk{},
		&model.Embedding{},
		&model.ExtractionResult{},
		&model.CompanySnapshot{},
		&model.Chat{},
		&model.Message{},
		&model.IngestionJob{},
	)
	if err != nil {
		log.Println("Error running AutoMigrate:", err)
		return err
	}

	// One active job per project
	if err := s.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active_per_project
		 ON ingestion_jobs (project_id)
		 WHERE status IN ('pending', 'running')`,
	).Error; err != nil {
		return fmt.Errorf("failed to create active-job unique index: %w", err)
	}

	// Approximate nearest-neighbour index over the embedding column
	if err := s.db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_embeddings_vector_cosine
		 ON embeddings USING ivfflat (vector vector_cosine_ops) WITH (lists = 100)`,
	).Error; err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	// The ANN index is correctness-critical; verify it actually exists
	var indexCount int64
	if err := s.db.Raw(
		`SELECT COUNT(*) FROM pg_indexes
		 WHERE tablename = 'embeddings' AND indexname = 'idx_embeddings_vector_cosine'`,
	).Scan(&indexCount).Error; err != nil {
		return fmt.Errorf("failed to verify vector index: %w", err)
	}
	if indexCount == 0 {
		return fmt.Errorf("vector index idx_embeddings_vector_cosine is missing after migration")
	}

	log.Println("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	log.Println("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *Store) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Transaction runs fn against a Store bound to one database transaction.
// Step commits go through here so that rows, resume payload, and job
// metadata become visible together or not at all.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
