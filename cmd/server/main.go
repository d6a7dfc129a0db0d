package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lazaro-backend/internal/api"
	"lazaro-backend/internal/config"
	"lazaro-backend/internal/embedding"
	"lazaro-backend/internal/handlers"
	"lazaro-backend/internal/llm"
	"lazaro-backend/internal/services"
	"lazaro-backend/internal/store/postgres"
	"lazaro-backend/internal/vectorstore"
	"lazaro-backend/internal/vectorstore/memory"
	"lazaro-backend/internal/vectorstore/qdrant"
)

func main() {
	log.Println("Starting Lazaro Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	pgStore := postgres.NewPostgresStore(dbpool)
	if err := pgStore.EnsureSchema(dbCtx); err != nil {
		log.Fatalf("FATAL: Failed to ensure database schema: %v", err)
	}
	log.Println("Postgres store initialized.")

	// 3. Initialize Vector Index
	var index vectorstore.Index
	switch cfg.VectorBackend {
	case "qdrant":
		index, err = qdrant.New(cfg.QdrantAddr)
		if err != nil {
			log.Fatalf("FATAL: Failed to connect to Qdrant at %s: %v", cfg.QdrantAddr, err)
		}
		log.Printf("Qdrant vector index initialized (%s).", cfg.QdrantAddr)
	case "memory":
		index = memory.New()
		log.Println("In-memory vector index initialized (data will not survive restarts).")
	}
	defer index.Close()

	// 4. Initialize Model Backends
	embedder := embedding.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDimension)
	llmClient := llm.NewOllamaClient(cfg.OllamaURL, cfg.LLMModel, float32(cfg.LLMTemperature))
	log.Printf("Ollama backends initialized (embedding=%s, llm=%s).", cfg.EmbeddingModel, cfg.LLMModel)

	// Pull the inference model in the background if it is not installed yet.
	// Requests issued meanwhile get a retryable 503.
	go llmClient.EnsureModel(context.Background())

	// 5. Initialize Services
	locks := services.NewConversationLocks()
	conversationService := services.NewConversationService(pgStore, index, locks, cfg.UploadDir)
	log.Println("ConversationService initialized.")
	documentService := services.NewDocumentService(pgStore, index, embedder, locks, services.IngestionConfig{
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
		EmbedConcurrency:   cfg.EmbedConcurrency,
		EmbeddingDimension: cfg.EmbeddingDimension,
		UploadDir:          cfg.UploadDir,
		IngestTimeout:      cfg.IngestTimeout,
	})
	log.Println("DocumentService initialized.")
	queryService := services.NewQueryService(pgStore, index, embedder, llmClient, locks, services.QueryConfig{
		TopK:               cfg.TopK,
		MaxContextLength:   cfg.MaxContextLength,
		MaxHistoryMessages: cfg.MaxHistoryMessages,
		EmbeddingDimension: cfg.EmbeddingDimension,
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
	})
	log.Println("QueryService initialized.")

	// 6. Initialize Handlers & Router
	routerDeps := api.RouterDependencies{
		ConversationHandlers: handlers.NewConversationHandlers(conversationService),
		DocumentHandlers:     handlers.NewDocumentHandlers(documentService, cfg.MaxUploadBytes),
		QueryHandlers:        handlers.NewQueryHandlers(queryService, llmClient),
		Config:               cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 7. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Write timeout stays generous: uploads index synchronously.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
