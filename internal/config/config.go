package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort    string
	DatabaseURL string

	// Vector store: "qdrant" (gRPC address in QdrantAddr) or "memory".
	VectorBackend string
	QdrantAddr    string

	// Ollama backends.
	OllamaURL          string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
	LLMTemperature     float64

	// Ingestion pipeline.
	UploadDir        string
	MaxUploadBytes   int64
	ChunkSize        int
	ChunkOverlap     int
	EmbedConcurrency int
	IngestTimeout    time.Duration

	// Retrieval and context assembly.
	TopK               int
	MaxContextLength   int
	MaxHistoryMessages int

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseURL: dbURL,

		VectorBackend: getEnv("VECTOR_BACKEND", "qdrant"),
		QdrantAddr:    getEnv("QDRANT_ADDR", "localhost:6334"),

		OllamaURL:          getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 768),
		LLMModel:           getEnv("LLM_MODEL", "llama3"),
		LLMTemperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),

		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20,
		ChunkSize:        getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
		IngestTimeout:    time.Duration(getEnvInt("INGEST_TIMEOUT_S", 600)) * time.Second,

		TopK:               getEnvInt("RETRIEVAL_TOP_K", 5),
		MaxContextLength:   getEnvInt("MAX_CONTEXT_LENGTH", 4096),
		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", 10),

		CORSAllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
	}

	if cfg.VectorBackend != "qdrant" && cfg.VectorBackend != "memory" {
		log.Fatalf("FATAL: VECTOR_BACKEND must be \"qdrant\" or \"memory\", got %q", cfg.VectorBackend)
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, VectorBackend=%s, EmbeddingModel=%s (dim=%d), LLMModel=%s",
		cfg.HTTPPort, cfg.VectorBackend, cfg.EmbeddingModel, cfg.EmbeddingDimension, cfg.LLMModel)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s %q, using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return value
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s %q, using default %g. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return value
}
