package tokencount

import (
	"errors"
	"testing"

	tiktoken "github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
)

func offlineCounter(calls *int) *Counter {
	c := NewCounter()
	c.load = func(string) (*tiktoken.Tiktoken, error) {
		*calls++
		return nil, errors.New("offline")
	}
	return c
}

func TestEncodingName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"google/gemini-2.0-flash-001":           "cl100k_base",
		"openai/gpt-4o-mini":                    "o200k_base",
		"meta-llama/llama-3.1-8b-instruct:free": "cl100k_base",
		"gpt-3.5-turbo":                         "cl100k_base",
		"":                                      "cl100k_base",
	}
	for model, want := range tests {
		assert.Equal(t, want, encodingName(model), model)
	}
}

func TestEstimate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("abc"))
	assert.Equal(t, 3, Estimate("Hello, world"))
}

func TestCalculateUsage_FallsBackToEstimate(t *testing.T) {
	t.Parallel()
	calls := 0
	c := offlineCounter(&calls)

	u := c.CalculateUsage("12345678", "1234", "google/gemini-2.0-flash-001", "openrouter")
	assert.Equal(t, 2, u.PromptTokens)
	assert.Equal(t, 1, u.CompletionTokens)
	assert.Equal(t, 3, u.TotalTokens)
	assert.Equal(t, "openrouter", u.Provider)
	assert.Equal(t, 2, calls, "failed loads are not cached")

	_, err := c.CountTokens("x", "gpt-4")
	assert.Error(t, err)
}
