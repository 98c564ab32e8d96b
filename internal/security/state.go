package security

import (
	"context"
	"sync"
	"time"
)

// StateStore holds the per-session and per-client counters the guard chain
// reads and writes. Making it an interface lets a multi-process deployment
// back it with a shared cache instead of process memory.
//
// None of this state is persisted: the memory driver resets on process
// restart, which is an accepted weakness of the abuse controls.
type StateStore interface {
	// CountRequests drops request records older than cutoff and returns
	// how many remain inside the window for the session.
	CountRequests(ctx context.Context, sessionID string, cutoff time.Time) (int, error)

	// RecordRequest appends a request instant for the session.
	RecordRequest(ctx context.Context, sessionID string, at time.Time) error

	// SessionKnown reports whether the client has already used this session id.
	SessionKnown(ctx context.Context, client, sessionID string) (bool, error)

	// CountSessions returns how many distinct session ids the client has used.
	CountSessions(ctx context.Context, client string) (int, error)

	// TrackSession records a session id against the client.
	TrackSession(ctx context.Context, client, sessionID string) error

	// TokensUsed returns the session's cumulative token counter.
	TokensUsed(ctx context.Context, sessionID string) (int, error)

	// AddTokens adds n to the session's cumulative token counter.
	AddTokens(ctx context.Context, sessionID string, n int) error

	// ResetTokens zeroes the session's token counter (on session deletion).
	ResetTokens(ctx context.Context, sessionID string) error
}

// MemoryStore implements StateStore with in-process maps. A single mutex
// serializes every read-modify-write, so the check-then-increment sequences
// in the guard chain cannot race within one process.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	sessions map[string][]string
	tokens   map[string]int
}

// NewMemoryStore creates an empty in-process state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string][]time.Time),
		sessions: make(map[string][]string),
		tokens:   make(map[string]int),
	}
}

// CountRequests implements StateStore
func (s *MemoryStore) CountRequests(ctx context.Context, sessionID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.requests[sessionID][:0]
	for _, at := range s.requests[sessionID] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.requests[sessionID] = kept
	return len(kept), nil
}

// RecordRequest implements StateStore
func (s *MemoryStore) RecordRequest(ctx context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[sessionID] = append(s.requests[sessionID], at)
	return nil
}

// SessionKnown implements StateStore
func (s *MemoryStore) SessionKnown(ctx context.Context, client, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sessions[client] {
		if id == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// CountSessions implements StateStore
func (s *MemoryStore) CountSessions(ctx context.Context, client string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions[client]), nil
}

// TrackSession implements StateStore
func (s *MemoryStore) TrackSession(ctx context.Context, client, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sessions[client] {
		if id == sessionID {
			return nil
		}
	}
	s.sessions[client] = append(s.sessions[client], sessionID)
	return nil
}

// TokensUsed implements StateStore
func (s *MemoryStore) TokensUsed(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens[sessionID], nil
}

// AddTokens implements StateStore
func (s *MemoryStore) AddTokens(ctx context.Context, sessionID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[sessionID] += n
	return nil
}

// ResetTokens implements StateStore
func (s *MemoryStore) ResetTokens(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, sessionID)
	return nil
}
