// Package ai wraps the text-completion backend behind a single contract:
// given a prompt, eventually return a response string or an error.
package ai

import (
	"context"
	"time"
)

type Responder interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MockResponder stands in when no API key is configured. It answers every
// prompt with a fixed reply after a short delay.
type MockResponder struct {
	Delay time.Duration
}

const mockReply = "This is a mock AI response. Please configure your Gemini API key."

func (m *MockResponder) Complete(ctx context.Context, prompt string) (string, error) {
	delay := m.Delay
	if delay == 0 {
		delay = time.Second
	}
	select {
	case <-time.After(delay):
		return mockReply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
