package api

import (
	"log"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lazaro-backend/internal/config"
	"lazaro-backend/internal/handlers"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ConversationHandlers *handlers.ConversationHandlers
	DocumentHandlers     *handlers.DocumentHandlers
	QueryHandlers        *handlers.QueryHandlers
	Config               *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Uploads of large archives can legitimately run for minutes (extraction,
	// embedding, indexing happen synchronously).
	r.Use(middleware.Timeout(10 * time.Minute))

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Health ---
	if deps.QueryHandlers != nil {
		r.Get("/health", deps.QueryHandlers.HandleHealth)
	}

	r.Route("/v1", func(r chi.Router) {
		// --- Conversation Routes ---
		if deps.ConversationHandlers != nil {
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", deps.ConversationHandlers.HandleCreateConversation)
				r.Get("/", deps.ConversationHandlers.HandleListConversations)
				r.Get("/{conversationID}", deps.ConversationHandlers.HandleGetConversation)
				r.Put("/{conversationID}", deps.ConversationHandlers.HandleUpdateConversation)
				r.Delete("/{conversationID}", deps.ConversationHandlers.HandleDeleteConversation)
				r.Post("/{conversationID}/messages", deps.ConversationHandlers.HandleAppendMessage)
				if deps.DocumentHandlers != nil {
					r.Get("/{conversationID}/documents", deps.DocumentHandlers.HandleListDocuments)
				}
			})
		} else {
			log.Println("WARN: ConversationHandlers dependency is nil, skipping /v1/conversations routes.")
		}

		// --- Document Routes ---
		if deps.DocumentHandlers != nil {
			r.Post("/upload", deps.DocumentHandlers.HandleUpload)
			r.Route("/documents", func(r chi.Router) {
				r.Get("/{documentID}", deps.DocumentHandlers.HandleGetDocument)
				r.Delete("/{documentID}", deps.DocumentHandlers.HandleDeleteDocument)
			})
		} else {
			log.Println("WARN: DocumentHandlers dependency is nil, skipping /v1/upload and /v1/documents routes.")
		}

		// --- Query Routes ---
		if deps.QueryHandlers != nil {
			r.Post("/ask", deps.QueryHandlers.HandleAsk)
		} else {
			log.Println("WARN: QueryHandlers dependency is nil, skipping /v1/ask route.")
		}
	})

	return r
}
