package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGeminiSummarizer_RequiresKey(t *testing.T) {
	_, err := NewGeminiSummarizer(context.Background(), "", "")
	assert.ErrorContains(t, err, "API key is required")
}

func TestNewGeminiSummarizer_DefaultModel(t *testing.T) {
	s, err := NewGeminiSummarizer(context.Background(), "test-key", "")
	if err != nil {
		t.Skipf("client construction unavailable: %v", err)
	}
	assert.Equal(t, "gemini-2.5-flash", s.Model())
}
