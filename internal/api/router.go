package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/profile-twin/chatbot/internal/api/handler"
	customMiddleware "github.com/profile-twin/chatbot/internal/api/middleware"
	"github.com/profile-twin/chatbot/internal/config"
	"github.com/profile-twin/chatbot/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, chatService *service.ChatService) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	chatHandler := handler.NewChatHandler(chatService)

	r.Get("/", handler.Root)
	r.Get("/health", handler.Health(cfg.Server.Environment, chatService))
	r.Post("/chat", chatHandler.Chat)

	return r
}
