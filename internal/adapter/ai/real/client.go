// Package real implements the completion client against the OpenRouter
// (OpenAI-compatible) chat completions API.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
)

// Provider is the provider label used in errors and metrics.
const Provider = "openrouter"

// Options configures one client instance. Generation parameters are fixed
// for the lifetime of the client.
type Options struct {
	APIKey     string
	BaseURL    string
	Referer    string
	Title      string
	Operation  string
	Generation domain.GenerationConfig
	// HTTPClient overrides the traced default client.
	HTTPClient *http.Client
	// Counter logs token usage when set.
	Counter *tokencount.Counter
}

// Client implements domain.CompletionClient. It makes exactly one attempt per
// call; retry decisions belong to the caller.
type Client struct {
	opts Options
	hc   *http.Client
}

// New constructs a client with an otelhttp-traced transport.
func New(opts Options) *Client {
	if opts.Operation == "" {
		opts.Operation = "chat"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	hc := opts.HTTPClient
	if hc == nil {
		transport := otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return fmt.Sprintf("Completion %s %s", r.Method, r.URL.Host)
			}),
		)
		// The caller's context carries the real deadline.
		hc = &http.Client{Transport: transport}
	}
	return &Client{opts: opts, hc: hc}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p,omitempty"`
	TopK        int32         `json:"top_k,omitempty"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete sends prompt as the user message and returns the first choice.
func (c *Client) Complete(ctx domain.Context, prompt string) (out string, err error) {
	start := time.Now()
	defer func() { observability.ObserveAIRequest(Provider, c.opts.Operation, start, err) }()
	lg := obsctx.LoggerFromContext(ctx)

	if c.opts.APIKey == "" {
		return "", c.fail(domain.ModelCauseAuth, errors.New("api key not configured"))
	}

	gen := c.opts.Generation
	body := chatRequest{
		Model:       gen.Model,
		Temperature: gen.Temperature,
		TopP:        gen.TopP,
		TopK:        gen.TopK,
		MaxTokens:   gen.MaxOutputTokens,
	}
	if gen.SystemInstruction != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: gen.SystemInstruction})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: prompt})
	b, err := json.Marshal(body)
	if err != nil {
		return "", c.fail(domain.ModelCauseMalformed, err)
	}

	endpoint := c.opts.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", c.fail(domain.ModelCauseNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.opts.Referer != "" {
		req.Header.Set("HTTP-Referer", c.opts.Referer)
	}
	if c.opts.Title != "" {
		req.Header.Set("X-Title", c.opts.Title)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", c.fail(domain.ModelCauseTimeout, err)
		}
		return "", c.fail(domain.ModelCauseNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		if isTimeout(ctx, err) {
			return "", c.fail(domain.ModelCauseTimeout, err)
		}
		return "", c.fail(domain.ModelCauseNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := snippet(bodyBytes, 512)
		lg.Warn("ai provider non-2xx",
			slog.String("provider", Provider),
			slog.String("op", c.opts.Operation),
			slog.Int("status", resp.StatusCode),
			slog.String("model", gen.Model),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, snippet)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", c.fail(domain.ModelCauseAuth, statusErr)
		case http.StatusTooManyRequests:
			return "", c.fail(domain.ModelCauseRateLimit, statusErr)
		default:
			return "", c.fail(domain.ModelCauseUpstream, statusErr)
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", c.fail(domain.ModelCauseMalformed, fmt.Errorf("decode: %w", err))
	}
	if parsed.Error != nil {
		return "", c.fail(domain.ModelCauseUpstream, fmt.Errorf("provider error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", c.fail(domain.ModelCauseMalformed, errors.New("empty choices"))
	}

	out = parsed.Choices[0].Message.Content
	if parsed.Model != "" && parsed.Model != gen.Model {
		lg.Warn("model substitution detected",
			slog.String("provider", Provider),
			slog.String("requested_model", gen.Model),
			slog.String("actual_model", parsed.Model))
	}
	attrs := []any{
		slog.String("provider", Provider),
		slog.String("op", c.opts.Operation),
		slog.String("finish_reason", parsed.Choices[0].FinishReason),
		slog.Duration("latency", time.Since(start)),
	}
	if c.opts.Counter != nil {
		u := c.opts.Counter.CalculateUsage(gen.SystemInstruction+"\n"+prompt, out, gen.Model, Provider)
		attrs = append(attrs, slog.Int("prompt_tokens", u.PromptTokens), slog.Int("completion_tokens", u.CompletionTokens))
	}
	lg.Info("completion call successful", attrs...)
	return out, nil
}

func (c *Client) fail(cause domain.ModelCause, err error) error {
	return &domain.ModelError{Provider: Provider, Cause: cause, Err: err}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
