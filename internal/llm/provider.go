package llm

import "context"

// Message is one role-tagged entry in the model-facing message list
type Message struct {
	Role    string
	Content string
}

// Request contains chat completion parameters. System carries the base
// prompt plus the assembled profile corpus; Messages is the trailing
// conversation window ending with the new user message.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Response contains the completion result
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for completion providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete generates a reply for the message history
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}
