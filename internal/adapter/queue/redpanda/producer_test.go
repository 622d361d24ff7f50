package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

type fakeProducerClient struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducerClient) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducerClient) Ping(context.Context) error { return f.err }
func (f *fakeProducerClient) Close()                     { f.closed = true }

func TestProducer_EnqueueFeedback(t *testing.T) {
	fc := &fakeProducerClient{}
	p := NewProducerWithClient(fc, "")
	payload := domain.FeedbackJobPayload{
		InterviewID: "iv-1",
		RequestID:   "req-1",
		Transcript:  []domain.Exchange{{Assistant: "Q", Client: "A"}},
		SubmittedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	id, err := p.EnqueueFeedback(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "iv-1", id)
	require.Len(t, fc.records, 1)
	rec := fc.records[0]
	assert.Equal(t, DefaultTopic, rec.Topic)
	assert.Equal(t, []byte("iv-1"), rec.Key)
	assert.Equal(t, "req-1", headerValue(rec, headerRequestID))

	var got domain.FeedbackJobPayload
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, payload, got)
}

func TestProducer_EnqueueFeedback_StampsSubmittedAt(t *testing.T) {
	fc := &fakeProducerClient{}
	_, err := NewProducerWithClient(fc, "t").EnqueueFeedback(context.Background(), domain.FeedbackJobPayload{InterviewID: "iv-1"})
	require.NoError(t, err)
	var got domain.FeedbackJobPayload
	require.NoError(t, json.Unmarshal(fc.records[0].Value, &got))
	assert.False(t, got.SubmittedAt.IsZero())
}

func TestProducer_EnqueueFeedback_Error(t *testing.T) {
	fc := &fakeProducerClient{err: errors.New("not leader")}
	p := NewProducerWithClient(fc, "t")
	_, err := p.EnqueueFeedback(context.Background(), domain.FeedbackJobPayload{InterviewID: "iv-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=redpanda.enqueue")
	assert.Error(t, p.Ping(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestNewProducer_NoBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), nil, "")
	require.Error(t, err)
}
