// Package stub provides a deterministic offline completion client for local
// runs without provider credentials.
package stub

import (
	"strings"
	"time"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/internal/feedback"
)

// Client echoes the worked examples of the feedback template for feedback
// prompts and a fenced question array for anything else.
type Client struct {
	// Latency simulates provider processing time.
	Latency time.Duration
}

// New returns a stub client with a small simulated latency.
func New() *Client { return &Client{Latency: 50 * time.Millisecond} }

// Complete returns a canned reply chosen by the prompt's shape.
func (c *Client) Complete(ctx domain.Context, prompt string) (string, error) {
	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return "", &domain.ModelError{Provider: "stub", Cause: domain.ModelCauseTimeout, Err: ctx.Err()}
		}
	}
	if strings.HasPrefix(prompt, feedback.Preamble) {
		return feedback.ExampleItem + "\n\n" + feedback.ExampleSummary, nil
	}
	return "```json\n[\"Tell me about yourself.\", \"Describe a hard bug you fixed.\", \"How do you test your code?\"]\n```", nil
}
