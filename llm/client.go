package llm

import (
	"context"
	"fmt"

	"github.com/atharvparlikar/pollux/session"
	"github.com/atharvparlikar/pollux/tools"
)

// LLMClient is the interface for interacting with a Large Language Model.
type LLMClient interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// MockLLMClient parrots the last user message back. It is the default
// backend when no model is configured, and is handy in tests.
type MockLLMClient struct{}

func (m *MockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	if len(messages) == 0 {
		return &session.Message{Role: "assistant", Content: "I am a mock LLM."}, nil
	}
	lastUserMessage := messages[len(messages)-1].Content
	return &session.Message{
		Role:    "assistant",
		Content: fmt.Sprintf("I am a mock LLM. You said: '%s'. I cannot use tools yet.", lastUserMessage),
	}, nil
}
