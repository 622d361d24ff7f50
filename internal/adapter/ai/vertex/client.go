// Package vertex implements the completion client with Gemini on Vertex AI.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
)

// Provider is the provider label used in errors and metrics.
const Provider = "vertex"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements domain.CompletionClient over a configured GenerativeModel.
type Client struct {
	model     generator
	modelName string
	operation string
	closer    func() error
}

// New dials Vertex AI and fixes the generation parameters on the model.
func New(ctx context.Context, project, location, operation string, gen domain.GenerationConfig) (*Client, error) {
	gc, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, fmt.Errorf("op=vertex.New: %w", err)
	}
	m := gc.GenerativeModel(gen.Model)
	m.SetTemperature(gen.Temperature)
	if gen.TopP > 0 {
		m.SetTopP(gen.TopP)
	}
	if gen.TopK > 0 {
		m.SetTopK(gen.TopK)
	}
	if gen.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(gen.MaxOutputTokens)
	}
	if gen.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(gen.SystemInstruction)}}
	}
	return &Client{model: m, modelName: gen.Model, operation: operation, closer: gc.Close}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Complete runs a single GenerateContent call and joins the text parts of
// the first candidate.
func (c *Client) Complete(ctx domain.Context, prompt string) (out string, err error) {
	start := time.Now()
	defer func() { observability.ObserveAIRequest(Provider, c.operation, start, err) }()

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &domain.ModelError{Provider: Provider, Cause: classify(ctx, err), Err: err}
	}
	out = firstText(resp)
	if strings.TrimSpace(out) == "" {
		return "", &domain.ModelError{Provider: Provider, Cause: domain.ModelCauseMalformed, Err: errors.New("no text in response")}
	}
	obsctx.LoggerFromContext(ctx).Info("completion call successful",
		slog.String("provider", Provider),
		slog.String("op", c.operation),
		slog.String("model", c.modelName),
		slog.Duration("latency", time.Since(start)))
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func classify(ctx context.Context, err error) domain.ModelCause {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ModelCauseTimeout
	}
	st, ok := status.FromError(err)
	if !ok {
		return domain.ModelCauseNetwork
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return domain.ModelCauseTimeout
	case codes.Unauthenticated, codes.PermissionDenied:
		return domain.ModelCauseAuth
	case codes.ResourceExhausted:
		return domain.ModelCauseRateLimit
	case codes.Unavailable:
		return domain.ModelCauseNetwork
	default:
		return domain.ModelCauseUpstream
	}
}
