package vertex

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if t, ok := parts[0].(genai.Text); ok {
			f.prompt = string(t)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}}}
}

func TestComplete_JoinsTextParts(t *testing.T) {
	g := &fakeGenerator{resp: textResponse(genai.Text("Label: "), genai.Text("GOOD"))}
	c := &Client{model: g, operation: "feedback"}
	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Label: GOOD", out)
	assert.Equal(t, "prompt", g.prompt)
	assert.NoError(t, c.Close())
}

func TestComplete_EmptyIsMalformed(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{nil, {}, textResponse()} {
		c := &Client{model: &fakeGenerator{resp: resp}}
		_, err := c.Complete(context.Background(), "p")
		var me *domain.ModelError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, domain.ModelCauseMalformed, me.Cause)
	}
}

func TestComplete_ErrorClassification(t *testing.T) {
	cases := []struct {
		err   error
		cause domain.ModelCause
	}{
		{status.Error(codes.ResourceExhausted, "quota"), domain.ModelCauseRateLimit},
		{status.Error(codes.PermissionDenied, "no"), domain.ModelCauseAuth},
		{status.Error(codes.DeadlineExceeded, "slow"), domain.ModelCauseTimeout},
		{status.Error(codes.Internal, "boom"), domain.ModelCauseUpstream},
		{context.DeadlineExceeded, domain.ModelCauseTimeout},
		{errors.New("dial tcp: refused"), domain.ModelCauseNetwork},
	}
	for _, tc := range cases {
		c := &Client{model: &fakeGenerator{err: tc.err}}
		_, err := c.Complete(context.Background(), "p")
		var me *domain.ModelError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, tc.cause, me.Cause, tc.err.Error())
		assert.ErrorIs(t, err, domain.ErrModel)
	}
}
