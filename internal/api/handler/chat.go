package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/profile-twin/chatbot/internal/api/response"
	"github.com/profile-twin/chatbot/internal/security"
	"github.com/profile-twin/chatbot/internal/service"
)

var validate = validator.New()

// maxMessageLength bounds the collapsed message body
const maxMessageLength = 2000

// ChatRequest is the /chat request body
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid"`
}

// ChatResponse is the /chat response body
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// ChatHandler handles the chat endpoint
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat handles one conversational exchange
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}

	message, err := normalizeMessage(req.Message)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.chatService.Chat(r.Context(), clientAddr(r), req.SessionID, message)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrInvalidRequest):
			response.BadRequest(w, "Invalid request detected")
		case errors.Is(err, security.ErrRateLimited),
			errors.Is(err, security.ErrSessionLimit),
			errors.Is(err, security.ErrTokenBudget):
			response.TooManyRequests(w, err.Error())
		default:
			response.InternalError(w, "Internal server error")
		}
		return
	}

	response.OK(w, ChatResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
	})
}

// normalizeMessage collapses runs of whitespace and applies the checks
// the struct validator cannot express: the length cap counts the
// collapsed form, and a message of more than 20 characters built from
// fewer than 5 distinct ones is rejected.
func normalizeMessage(message string) (string, error) {
	message = strings.Join(strings.Fields(message), " ")
	if message == "" {
		return "", errors.New("message cannot be empty")
	}
	if len(message) > maxMessageLength {
		return "", errors.New("message too long")
	}

	distinct := make(map[rune]struct{})
	for _, r := range message {
		distinct[r] = struct{}{}
	}
	if len(distinct) < 5 && utf8.RuneCountInString(message) > 20 {
		return "", errors.New("invalid message format")
	}

	return message, nil
}

// clientAddr extracts the client host. The RealIP middleware has already
// resolved X-Forwarded-For into RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
