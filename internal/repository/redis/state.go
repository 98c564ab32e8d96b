package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	requestsPrefix = "guard:requests:"
	sessionsPrefix = "guard:sessions:"
	tokensPrefix   = "guard:tokens:"

	// Session request history only matters within the rate window; keys
	// self-expire well past any configured window so abandoned sessions
	// do not accumulate.
	requestsTTL = 24 * time.Hour
)

// StateStore implements security.StateStore on Redis, so guard counters
// can be shared across processes. Request instants live in a sorted set
// scored by unix nanos, per-client session ids in a set, token counters
// in a plain integer key.
//
// The guard's check-then-write sequence spans two round trips here, so
// concurrent requests for one session can race past a ceiling by a
// small margin. The abuse controls tolerate that.
type StateStore struct {
	client *Client
}

// NewStateStore creates a redis-backed guard state store
func NewStateStore(client *Client) *StateStore {
	return &StateStore{client: client}
}

// CountRequests implements security.StateStore
func (s *StateStore) CountRequests(ctx context.Context, sessionID string, cutoff time.Time) (int, error) {
	key := requestsPrefix + sessionID

	pipe := s.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("failed to count session requests: %w", err)
	}

	return int(countCmd.Val()), nil
}

// RecordRequest implements security.StateStore
func (s *StateStore) RecordRequest(ctx context.Context, sessionID string, at time.Time) error {
	key := requestsPrefix + sessionID

	pipe := s.client.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: strconv.FormatInt(at.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, requestsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// SessionKnown implements security.StateStore
func (s *StateStore) SessionKnown(ctx context.Context, client, sessionID string) (bool, error) {
	known, err := s.client.rdb.SIsMember(ctx, sessionsPrefix+client, sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session membership: %w", err)
	}
	return known, nil
}

// CountSessions implements security.StateStore
func (s *StateStore) CountSessions(ctx context.Context, client string) (int, error) {
	count, err := s.client.rdb.SCard(ctx, sessionsPrefix+client).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count client sessions: %w", err)
	}
	return int(count), nil
}

// TrackSession implements security.StateStore
func (s *StateStore) TrackSession(ctx context.Context, client, sessionID string) error {
	if err := s.client.rdb.SAdd(ctx, sessionsPrefix+client, sessionID).Err(); err != nil {
		return fmt.Errorf("failed to track session: %w", err)
	}
	return nil
}

// TokensUsed implements security.StateStore
func (s *StateStore) TokensUsed(ctx context.Context, sessionID string) (int, error) {
	val, err := s.client.rdb.Get(ctx, tokensPrefix+sessionID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read token counter: %w", err)
	}
	return val, nil
}

// AddTokens implements security.StateStore
func (s *StateStore) AddTokens(ctx context.Context, sessionID string, n int) error {
	if err := s.client.rdb.IncrBy(ctx, tokensPrefix+sessionID, int64(n)).Err(); err != nil {
		return fmt.Errorf("failed to add tokens: %w", err)
	}
	return nil
}

// ResetTokens implements security.StateStore
func (s *StateStore) ResetTokens(ctx context.Context, sessionID string) error {
	if err := s.client.rdb.Del(ctx, tokensPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to reset token counter: %w", err)
	}
	return nil
}
