package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockResponderAnswersAfterDelay(t *testing.T) {
	m := &MockResponder{Delay: 5 * time.Millisecond}

	start := time.Now()
	reply, err := m.Complete(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, "This is a mock AI response. Please configure your Gemini API key.", reply)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestMockResponderHonorsContextCancel(t *testing.T) {
	m := &MockResponder{Delay: time.Minute}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, "anything")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
