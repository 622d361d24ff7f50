// Package ai selects and builds the completion client for the configured provider.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/real"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/stub"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/vertex"
	"github.com/fairyhunter13/interview-feedback/internal/config"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// Provider names accepted in AI_PROVIDER.
const (
	ProviderOpenRouter = "openrouter"
	ProviderVertex     = "vertex"
	ProviderStub       = "stub"
)

// Generation settings for the feedback analysis call.
const (
	FeedbackTemperature     float32 = 0.7
	FeedbackMaxOutputTokens int32   = 2500
)

// Generation settings shared by both question kinds.
const (
	QuestionTopP            float32 = 1
	QuestionTopK            int32   = 32
	QuestionMaxOutputTokens int32   = 1024
)

// FeedbackGeneration returns the fixed generation config for feedback analysis.
func FeedbackGeneration(cfg config.Config) domain.GenerationConfig {
	return domain.GenerationConfig{
		Model:           cfg.FeedbackModel,
		Temperature:     FeedbackTemperature,
		MaxOutputTokens: FeedbackMaxOutputTokens,
	}
}

// QuestionGeneration returns the generation config for one question preset.
func QuestionGeneration(cfg config.Config, preset config.QuestionPreset) domain.GenerationConfig {
	return domain.GenerationConfig{
		Model:             cfg.QuestionModel,
		SystemInstruction: preset.SystemInstruction,
		Temperature:       preset.Temperature,
		TopP:              QuestionTopP,
		TopK:              QuestionTopK,
		MaxOutputTokens:   QuestionMaxOutputTokens,
	}
}

// NewCompletionClient builds the client for cfg.AIProvider. The returned
// close function is never nil.
func NewCompletionClient(ctx context.Context, cfg config.Config, operation string, gen domain.GenerationConfig) (domain.CompletionClient, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.AIProvider) {
	case ProviderOpenRouter, "":
		return real.New(real.Options{
			APIKey:     cfg.OpenRouterAPIKey,
			BaseURL:    cfg.OpenRouterBaseURL,
			Referer:    cfg.OpenRouterReferer,
			Title:      cfg.OpenRouterTitle,
			Operation:  operation,
			Generation: gen,
			Counter:    tokencount.DefaultCounter,
		}), noop, nil
	case ProviderVertex:
		if cfg.VertexProject == "" {
			return nil, noop, fmt.Errorf("op=ai.NewCompletionClient: VERTEX_PROJECT is required for the vertex provider")
		}
		c, err := vertex.New(ctx, cfg.VertexProject, cfg.VertexLocation, operation, gen)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case ProviderStub:
		return stub.New(), noop, nil
	default:
		return nil, noop, fmt.Errorf("op=ai.NewCompletionClient: unsupported provider %q", cfg.AIProvider)
	}
}
