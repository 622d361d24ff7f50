package real

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

func newTestClient(url string) *Client {
	return New(Options{
		APIKey:  "k",
		BaseURL: url + "/",
		Title:   "Interview Feedback",
		Generation: domain.GenerationConfig{
			Model:             "google/gemini-2.0-flash-001",
			SystemInstruction: "sys",
			Temperature:       0.7,
			MaxOutputTokens:   2500,
		},
	})
}

func TestComplete_SendsFixedGenerationConfig(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "Interview Feedback", r.Header.Get("X-Title"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "google/gemini-2.0-flash-001", req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-6)
		assert.Equal(t, int32(2500), req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "the prompt", req.Messages[1].Content)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "google/gemini-2.0-flash-001",
			"choices": []map[string]any{{"message": map[string]any{"content": "Label: GOOD"}}},
		})
	}))
	defer ts.Close()

	out, err := newTestClient(ts.URL).Complete(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Label: GOOD", out)
}

func TestComplete_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		cause  domain.ModelCause
	}{
		{http.StatusUnauthorized, domain.ModelCauseAuth},
		{http.StatusForbidden, domain.ModelCauseAuth},
		{http.StatusTooManyRequests, domain.ModelCauseRateLimit},
		{http.StatusBadGateway, domain.ModelCauseUpstream},
		{http.StatusBadRequest, domain.ModelCauseUpstream},
	}
	for _, c := range cases {
		calls := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		_, err := newTestClient(ts.URL).Complete(context.Background(), "p")
		ts.Close()

		var me *domain.ModelError
		require.ErrorAs(t, err, &me, "status %d", c.status)
		assert.Equal(t, c.cause, me.Cause)
		assert.ErrorIs(t, err, domain.ErrModel)
		assert.Equal(t, 1, calls, "single attempt for status %d", c.status)
	}
}

func TestComplete_MalformedResponses(t *testing.T) {
	bodies := []string{`not json`, `{"choices":[]}`, `{"choices":[{"message":{"content":"  "}}]}`}
	for _, body := range bodies {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := newTestClient(ts.URL).Complete(context.Background(), "p")
		ts.Close()
		var me *domain.ModelError
		require.ErrorAs(t, err, &me, body)
		assert.Equal(t, domain.ModelCauseMalformed, me.Cause, body)
	}
}

func TestComplete_ProviderErrorIn200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","code":502}}`))
	}))
	defer ts.Close()
	_, err := newTestClient(ts.URL).Complete(context.Background(), "p")
	var me *domain.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, domain.ModelCauseUpstream, me.Cause)
}

func TestComplete_DeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(ts.URL).Complete(ctx, "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamTimeout))
	var me *domain.ModelError
	require.ErrorAs(t, err, &me)
	assert.True(t, me.Timeout())
}

func TestComplete_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()
	_, err := newTestClient(url).Complete(context.Background(), "p")
	var me *domain.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, domain.ModelCauseNetwork, me.Cause)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	_, err := New(Options{BaseURL: "http://unused"}).Complete(context.Background(), "p")
	var me *domain.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, domain.ModelCauseAuth, me.Cause)
}
