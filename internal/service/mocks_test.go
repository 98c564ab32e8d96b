package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/profile-twin/chatbot/internal/llm"
)

// MockProvider mocks the llm.Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) AvailableModels() []string {
	return []string{"mock-model"}
}

func (m *MockProvider) DefaultModel() string {
	return "mock-model"
}

func (m *MockProvider) IsConfigured() bool {
	return true
}

func (m *MockProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}
