package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/profile-twin/chatbot/internal/config"
	"github.com/profile-twin/chatbot/internal/conversation"
	"github.com/profile-twin/chatbot/internal/docs"
	"github.com/profile-twin/chatbot/internal/domain"
	"github.com/profile-twin/chatbot/internal/llm"
	"github.com/profile-twin/chatbot/internal/security"
)

// ErrCompletion is returned for any completion-service failure. Upstream
// error detail stays in the logs; callers see only a generic signal.
var ErrCompletion = errors.New("AI service error")

// ChatResult is one completed exchange
type ChatResult struct {
	Response  string
	SessionID string
}

// ChatService orchestrates one chat exchange in a fixed order: guard
// checks, conversation load, expiry self-heal, budget gate, completion
// call, accounting and persistence. Any guard rejection short-circuits
// with no persistence side effects.
type ChatService struct {
	guard         *security.Guard
	detector      *security.JailbreakDetector
	conversations *conversation.Store
	assembler     *docs.Assembler
	llmRouter     *llm.Router
	chat          config.ChatConfig
	sessionMaxAge time.Duration
}

// NewChatService creates a new chat service
func NewChatService(
	guard *security.Guard,
	detector *security.JailbreakDetector,
	conversations *conversation.Store,
	assembler *docs.Assembler,
	llmRouter *llm.Router,
	chatCfg config.ChatConfig,
	sessionMaxAge time.Duration,
) *ChatService {
	return &ChatService{
		guard:         guard,
		detector:      detector,
		conversations: conversations,
		assembler:     assembler,
		llmRouter:     llmRouter,
		chat:          chatCfg,
		sessionMaxAge: sessionMaxAge,
	}
}

// Chat handles one inbound message for a session. An empty sessionID
// mints a new one; a supplied id has already been validated as a UUID by
// the handler.
func (s *ChatService) Chat(ctx context.Context, client, sessionID, message string) (*ChatResult, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if s.detector.Detect(message) {
		log.Warn().Str("client", client).Str("session_id", sessionID).Msg("jailbreak attempt detected")
		return nil, security.ErrInvalidRequest
	}

	if err := s.guard.AllowRequest(ctx, sessionID); err != nil {
		return nil, err
	}

	if err := s.guard.AllowSession(ctx, client, sessionID); err != nil {
		return nil, err
	}

	log.Info().
		Str("event", "chat_request").
		Str("session_id", sessionID).
		Str("client", client).
		Int("message_length", len(message)).
		Msg("processing chat request")

	turns := s.conversations.Load(ctx, sessionID)
	turns = s.expireIfStale(ctx, sessionID, turns)

	// Pre-call budget gate; cost 0 checks without consuming
	if err := s.guard.Consume(ctx, sessionID, 0); err != nil {
		return nil, err
	}

	reply, err := s.complete(ctx, turns, message)
	if err != nil {
		return nil, err
	}

	// Post-call accounting only; the result is ignored, so a session can
	// overshoot the budget by this one request's cost.
	cost := llm.EstimateTokens(message, reply)
	_ = s.guard.Consume(ctx, sessionID, cost)

	turns = append(turns,
		domain.NewTurn(domain.RoleUser, message),
		domain.NewTurn(domain.RoleAssistant, reply),
	)
	s.conversations.Save(ctx, sessionID, turns)

	log.Info().
		Str("event", "chat_response").
		Str("session_id", sessionID).
		Int("response_length", len(reply)).
		Int("estimated_tokens", cost).
		Msg("chat request completed")

	return &ChatResult{Response: reply, SessionID: sessionID}, nil
}

// expireIfStale deletes a conversation whose first turn is older than the
// configured session age and substitutes an empty history. This check
// never rejects the request: the session resets transparently. A zero
// timestamp means the age cannot be judged, so the session is kept.
func (s *ChatService) expireIfStale(ctx context.Context, sessionID string, turns []domain.Turn) []domain.Turn {
	if len(turns) == 0 || turns[0].Timestamp.IsZero() {
		return turns
	}

	if time.Since(turns[0].Timestamp) <= s.sessionMaxAge {
		return turns
	}

	log.Info().Str("session_id", sessionID).Time("started", turns[0].Timestamp).Msg("session expired, resetting")
	s.conversations.Delete(ctx, sessionID)
	s.guard.ResetBudget(ctx, sessionID)
	return nil
}

func (s *ChatService) complete(ctx context.Context, turns []domain.Turn, message string) (string, error) {
	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		log.Error().Err(err).Msg("no completion provider available")
		return "", ErrCompletion
	}

	system := s.chat.SystemPrompt + "\n\nResume/Profile Content:\n" + s.assembler.Assemble(ctx)

	window := domain.TrailingWindow(turns, s.chat.HistoryWindow)
	messages := make([]llm.Message, 0, len(window)+1)
	for _, t := range window {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: string(domain.RoleUser), Content: message})

	resp, err := provider.Complete(ctx, llm.Request{
		System:      system,
		Messages:    messages,
		MaxTokens:   s.chat.MaxOutputTokens,
		Temperature: s.chat.Temperature,
		TopP:        s.chat.TopP,
	}, "")
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("completion call failed")
		return "", ErrCompletion
	}

	return resp.Text, nil
}

// DocumentsAvailable reports how many profile documents resolve, for the
// health endpoint.
func (s *ChatService) DocumentsAvailable(ctx context.Context) int {
	return s.assembler.Available(ctx)
}

// DocumentSource reports the primary document source label
func (s *ChatService) DocumentSource() string {
	return s.assembler.SourceLabel()
}

// Model reports the default provider's model identifier
func (s *ChatService) Model() string {
	return s.llmRouter.DefaultModel()
}
