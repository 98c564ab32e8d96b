package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		message  string
		response string
		want     int
	}{
		{"", "", 0},
		{"abc", "", 0},
		{"abcd", "", 1},
		{"What are your skills?", "Go, mostly.", 8}, // (21+11)/4
		{"aaaa", "bbbb", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.message, tt.response))
	}
}

func TestRouter_DefaultModelUnregistered(t *testing.T) {
	r := NewRouter("openai")
	assert.Empty(t, r.DefaultModel())

	_, err := r.GetProvider("")
	assert.Error(t, err)
}
