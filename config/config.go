package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set or is "development"
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Redis Configuration
	REDIS_URL string
	// DigitalOcean Configuration
	DO_SPACES_ACCESS_KEY string
	DO_SPACES_SECRET_KEY string
	DO_SPACES_BUCKET     string
	DO_SPACES_REGION     string
	DO_SPACES_ENDPOINT   string
	MODEL_ACCESS_KEY     string

	// Model identifiers
	EMBEDDING_MODEL  string
	CHAT_MODEL       string
	EXTRACTION_MODEL string

	// Chunking / retrieval configuration
	CHUNK_SIZE           int
	CHUNK_OVERLAP        int
	MAX_CHUNKS_PER_PAGE  int
	KNN_K                int
	EMBEDDING_DIMENSIONS int

	// Job orchestration configuration
	MAX_RETRIES                 int
	STALE_JOB_THRESHOLD_MINUTES int
	KEEPALIVE_SECONDS           int
	SCRAPE_TIMEOUT_SECONDS      int
	SNAPSHOT_REGENERATE         bool
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// DigitalOcean
		DO_SPACES_ACCESS_KEY: os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY: os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:     os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:     os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:   os.Getenv("DO_SPACES_ENDPOINT"),
		MODEL_ACCESS_KEY:     os.Getenv("MODEL_ACCESS_KEY"),

		// Model identifiers (with defaults)
		EMBEDDING_MODEL:  getEnvString("EMBEDDING_MODEL", "gte-large-en-v1.5"),
		CHAT_MODEL:       getEnvString("CHAT_MODEL", "llama3.3-70b-instruct"),
		EXTRACTION_MODEL: getEnvString("EXTRACTION_MODEL", "llama3.3-70b-instruct"),

		// Chunking / retrieval (with defaults)
		CHUNK_SIZE:           getEnvInt("CHUNK_SIZE", 400),
		CHUNK_OVERLAP:        getEnvInt("CHUNK_OVERLAP", 80),
		MAX_CHUNKS_PER_PAGE:  getEnvInt("MAX_CHUNKS_PER_PAGE", 10),
		KNN_K:                getEnvInt("KNN_K", 10),
		EMBEDDING_DIMENSIONS: getEnvInt("EMBEDDING_DIMENSIONS", 1024),

		// Job orchestration (with defaults)
		MAX_RETRIES:                 getEnvInt("MAX_RETRIES", 3),
		STALE_JOB_THRESHOLD_MINUTES: getEnvInt("STALE_JOB_THRESHOLD_MINUTES", 5),
		KEEPALIVE_SECONDS:           getEnvInt("KEEPALIVE_SECONDS", 30),
		SCRAPE_TIMEOUT_SECONDS:      getEnvInt("SCRAPE_TIMEOUT_SECONDS", 30),
		SNAPSHOT_REGENERATE:         getEnvBool("SNAPSHOT_REGENERATE", true),
	}

	return envVariables, nil
}

// getEnvString returns a string environment variable or a default value
func getEnvString(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getEnvBool returns a boolean environment variable or a default value
func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return boolVal
}
