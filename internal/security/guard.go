package security

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Guard rejection sentinels. Handlers map these to HTTP statuses and
// return the messages verbatim to the client.
var (
	ErrInvalidRequest = errors.New("invalid request detected")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrSessionLimit   = errors.New("too many sessions from this client")
	ErrTokenBudget    = errors.New("session token budget exhausted")
)

// Limits holds the guard ceilings
type Limits struct {
	MaxRequestsPerSession int
	RateWindow            time.Duration
	MaxSessionsPerClient  int
	MaxTokensPerSession   int
}

// Guard runs the pre-call abuse checks over an injectable StateStore.
// If the store itself fails, checks fail open: an unavailable counter
// backend should degrade abuse control, not take the service down.
type Guard struct {
	store  StateStore
	limits Limits
}

// NewGuard creates a guard with the given state store and ceilings
func NewGuard(store StateStore, limits Limits) *Guard {
	return &Guard{store: store, limits: limits}
}

// AllowRequest enforces the per-session sliding-window rate limit. The
// window is a sliding cutoff recomputed on every check, not a fixed
// bucket. An allowed request is recorded immediately.
func (g *Guard) AllowRequest(ctx context.Context, sessionID string) error {
	now := time.Now()
	count, err := g.store.CountRequests(ctx, sessionID, now.Add(-g.limits.RateWindow))
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("rate limit state unavailable, allowing request")
		return nil
	}

	if count >= g.limits.MaxRequestsPerSession {
		log.Warn().Str("session_id", sessionID).Int("count", count).Msg("session rate limit exceeded")
		return ErrRateLimited
	}

	if err := g.store.RecordRequest(ctx, sessionID, now); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to record request instant")
	}
	return nil
}

// AllowSession enforces the per-client session cap. Only a session id the
// client has never used before counts against the cap; known ids always
// pass. The tracked set never expires within a process lifetime.
func (g *Guard) AllowSession(ctx context.Context, client, sessionID string) error {
	known, err := g.store.SessionKnown(ctx, client, sessionID)
	if err != nil {
		log.Error().Err(err).Str("client", client).Msg("session tracker state unavailable, allowing request")
		return nil
	}
	if known {
		return nil
	}

	count, err := g.store.CountSessions(ctx, client)
	if err != nil {
		log.Error().Err(err).Str("client", client).Msg("session tracker state unavailable, allowing request")
		return nil
	}
	if count >= g.limits.MaxSessionsPerClient {
		log.Warn().Str("client", client).Int("sessions", count).Msg("client session limit exceeded")
		return ErrSessionLimit
	}

	if err := g.store.TrackSession(ctx, client, sessionID); err != nil {
		log.Error().Err(err).Str("client", client).Msg("failed to track session")
	}
	return nil
}

// Consume checks the session's cumulative token counter against the
// ceiling, then adds cost. The rejection happens only when the counter is
// already over budget before the addition: called with cost 0 it is a
// pure gate, called after the completion with the real cost it is
// accounting whose result the caller ignores. A session can therefore
// overshoot the budget by exactly one request's tokens.
func (g *Guard) Consume(ctx context.Context, sessionID string, cost int) error {
	used, err := g.store.TokensUsed(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("token budget state unavailable, allowing request")
		return nil
	}

	if used > g.limits.MaxTokensPerSession {
		log.Warn().Str("session_id", sessionID).Int("used", used).Msg("session token budget exhausted")
		return ErrTokenBudget
	}

	if cost > 0 {
		if err := g.store.AddTokens(ctx, sessionID, cost); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("failed to record token usage")
		}
	}
	return nil
}

// ResetBudget zeroes a session's token counter, used when an expired
// session is deleted.
func (g *Guard) ResetBudget(ctx context.Context, sessionID string) {
	if err := g.store.ResetTokens(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to reset token counter")
	}
}
