// Package tokencount counts prompt and completion tokens with tiktoken-go.
//
// Gemini and other non-OpenAI models have no public tiktoken encoding, so
// cl100k_base is used as an approximation for budget checks and usage logs.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenUsage represents token counts for a completion call.
type TokenUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
	// load resolves an encoding name; swapped in tests to avoid downloads.
	load func(name string) (*tiktoken.Tiktoken, error)
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
		load:          tiktoken.GetEncoding,
	}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[name]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := c.load(name)
	if err != nil {
		return nil, err
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// encodingName maps a model id to a tiktoken encoding.
func encodingName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

// CountTokens counts the tokens in text for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Estimate returns a rough count of about four bytes per token. It is the
// fallback when no encoding can be loaded.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}

// CountOrEstimate counts with tiktoken and falls back to Estimate on error.
func (c *Counter) CountOrEstimate(text, model string) int {
	n, err := c.CountTokens(text, model)
	if err != nil {
		slog.Warn("failed to count tokens, using estimate", slog.String("model", model), slog.Any("error", err))
		return Estimate(text)
	}
	return n
}

// CalculateUsage calculates token usage for one completion.
func (c *Counter) CalculateUsage(prompt, completion, model, provider string) TokenUsage {
	p := c.CountOrEstimate(prompt, model)
	r := c.CountOrEstimate(completion, model)
	return TokenUsage{
		PromptTokens:     p,
		CompletionTokens: r,
		TotalTokens:      p + r,
		Model:            model,
		Provider:         provider,
	}
}
