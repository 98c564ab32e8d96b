package handler

import (
	"net/http"

	"github.com/profile-twin/chatbot/internal/api/response"
)

// Root returns the static service description
func Root(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"name":    "Professional Profile Chatbot API",
		"version": "1.0",
		"features": []string{
			"profile document corpus",
			"conversation memory",
			"abuse controls",
		},
		"endpoints": map[string]string{
			"health": "/health",
			"chat":   "/chat",
		},
	})
}
