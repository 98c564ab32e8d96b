package domain

import "time"

// TurnRole identifies the author of a conversation turn
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// MaxStoredTurns bounds how much of a conversation is persisted per session
const MaxStoredTurns = 100

// Turn is one message in a conversation. Turns are immutable once written
// and ordered by conversational sequence.
type Turn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time
func NewTurn(role TurnRole, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// TruncateTurns keeps the most recent max turns
func TruncateTurns(turns []Turn, max int) []Turn {
	if len(turns) > max {
		return turns[len(turns)-max:]
	}
	return turns
}

// TrailingWindow returns the last n turns of a conversation
func TrailingWindow(turns []Turn, n int) []Turn {
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}
