package handler

import (
	"net/http"

	"github.com/profile-twin/chatbot/internal/api/response"
	"github.com/profile-twin/chatbot/internal/service"
)

// Health returns service status including how many profile documents
// resolve and which source serves them
func Health(environment string, chatService *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"status":          "healthy",
			"environment":     environment,
			"model":           chatService.Model(),
			"documents_found": chatService.DocumentsAvailable(r.Context()),
			"document_source": chatService.DocumentSource(),
		})
	}
}
