package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
)

type fakeConsumerClient struct {
	mu      sync.Mutex
	batches []kgo.Fetches
	marked  []*kgo.Record
	commits int
	closed  bool
}

func (f *fakeConsumerClient) PollFetches(ctx context.Context) kgo.Fetches {
	f.mu.Lock()
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kgo.NewErrFetch(ctx.Err())
}

func (f *fakeConsumerClient) MarkCommitRecords(rs ...*kgo.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, rs...)
}

func (f *fakeConsumerClient) CommitMarkedOffsets(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeConsumerClient) Close() { f.closed = true }

func (f *fakeConsumerClient) markedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.marked)
}

func fetchesOf(recs ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      DefaultTopic,
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: recs}},
	}}}}
}

func jobRecord(t *testing.T, offset int64, p domain.FeedbackJobPayload) *kgo.Record {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return &kgo.Record{Topic: DefaultTopic, Key: []byte(p.InterviewID), Value: b, Offset: offset}
}

func TestConsumer_ProcessesAndMarksEveryRecord(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		rids []string
	)
	h := HandlerFunc(func(ctx domain.Context, p domain.FeedbackJobPayload) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p.InterviewID)
		rids = append(rids, obsctx.RequestIDFromContext(ctx))
		if p.InterviewID == "iv-2" {
			return &domain.ModelError{Provider: "stub", Cause: domain.ModelCauseUpstream, Err: errors.New("500")}
		}
		return nil
	})
	bad := &kgo.Record{Topic: DefaultTopic, Value: []byte("{not json"), Offset: 3}
	fc := &fakeConsumerClient{batches: []kgo.Fetches{
		fetchesOf(
			jobRecord(t, 1, domain.FeedbackJobPayload{InterviewID: "iv-1", RequestID: "req-1"}),
			jobRecord(t, 2, domain.FeedbackJobPayload{InterviewID: "iv-2"}),
			bad,
		),
	}}
	c := NewConsumerWithClient(fc, DefaultTopic, 2, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return fc.markedCount() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"iv-1", "iv-2"}, seen)
	assert.Contains(t, rids, "req-1")
	assert.Equal(t, 1, fc.commits)
	assert.True(t, c.Healthy())
}

func TestConsumer_ProcessRecordFallsBackToHeaders(t *testing.T) {
	var got domain.FeedbackJobPayload
	c := NewConsumerWithClient(&fakeConsumerClient{}, DefaultTopic, 1, HandlerFunc(func(_ domain.Context, p domain.FeedbackJobPayload) error {
		got = p
		return nil
	}))
	r := &kgo.Record{
		Value:   []byte(`{"transcript":[{"assistant":"Q","client":"A"}]}`),
		Headers: []kgo.RecordHeader{{Key: headerInterviewID, Value: []byte("iv-9")}, {Key: headerRequestID, Value: []byte("req-9")}},
	}
	require.NoError(t, c.processRecord(context.Background(), r))
	assert.Equal(t, "iv-9", got.InterviewID)
	assert.Equal(t, "req-9", got.RequestID)

	err := c.processRecord(context.Background(), &kgo.Record{Value: []byte(`{}`)})
	assert.Equal(t, CodeSchemaInvalid, classifyFailureCode(err))
}

func TestConsumer_HandlerSurvivesShutdown(t *testing.T) {
	c := NewConsumerWithClient(&fakeConsumerClient{}, DefaultTopic, 1, HandlerFunc(func(ctx domain.Context, _ domain.FeedbackJobPayload) error {
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.processRecord(ctx, jobRecord(t, 0, domain.FeedbackJobPayload{InterviewID: "iv-1"})))
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(context.Background(), ConsumerConfig{Group: "g"}, nil)
	require.Error(t, err)
	_, err = NewConsumer(context.Background(), ConsumerConfig{Brokers: []string{"localhost:9092"}}, nil)
	require.Error(t, err)
}
