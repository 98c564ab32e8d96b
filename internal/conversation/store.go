package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/profile-twin/chatbot/internal/domain"
	"github.com/profile-twin/chatbot/internal/repository/objectstore"
)

// Store persists each session's turn list as one JSON blob. The backing
// store is chosen once at process start; there is no fallback between
// backends during a request. Read and write failures are recovered here
// and never reach the caller.
type Store struct {
	backend objectstore.Store
}

// NewStore creates a conversation store over the given backend
func NewStore(backend objectstore.Store) *Store {
	return &Store{backend: backend}
}

// Key returns the storage key for a session's conversation blob
func Key(sessionID string) string {
	return fmt.Sprintf("conversations/%s.json", sessionID)
}

// Load returns the stored turn list for a session. A missing blob, a
// storage failure or a corrupt blob all yield an empty conversation.
func (s *Store) Load(ctx context.Context, sessionID string) []domain.Turn {
	data, err := s.backend.Get(ctx, Key(sessionID))
	if err != nil {
		if !errors.Is(err, objectstore.ErrNotFound) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load conversation")
		}
		return nil
	}

	var turns []domain.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("corrupt conversation blob, starting fresh")
		return nil
	}
	return turns
}

// Save writes the turn list, truncated to the newest MaxStoredTurns
// entries. Failures are logged only.
func (s *Store) Save(ctx context.Context, sessionID string, turns []domain.Turn) {
	turns = domain.TruncateTurns(turns, domain.MaxStoredTurns)

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal conversation")
		return
	}

	if err := s.backend.Put(ctx, Key(sessionID), data); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to save conversation")
		return
	}

	log.Info().Str("session_id", sessionID).Int("turns", len(turns)).Msg("saved conversation")
}

// Delete removes a session's conversation blob, best effort
func (s *Store) Delete(ctx context.Context, sessionID string) {
	if err := s.backend.Delete(ctx, Key(sessionID)); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete conversation")
	}
}
