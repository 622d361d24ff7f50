// Package redpanda carries feedback jobs over a Kafka-protocol topic: the
// server publishes one record per job and the worker consumes them in a
// consumer group.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// DefaultTopic is the topic feedback jobs are published to.
const DefaultTopic = "feedback-jobs"

const (
	headerInterviewID = "interview_id"
	headerRequestID   = "request_id"
)

type producerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer publishes feedback jobs and implements domain.Queue.
type Producer struct {
	client producerClient
	topic  string
}

// NewProducer connects to brokers and makes sure topic exists.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(newTracer())).Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}
	if err := EnsureTopic(ctx, client, topic, 3, 1); err != nil {
		slog.Warn("failed to ensure topic, publishing anyway", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// NewProducerWithClient wraps an existing client, mainly for tests.
func NewProducerWithClient(client producerClient, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{client: client, topic: topic}
}

// EnqueueFeedback publishes payload keyed by interview id so that jobs for
// the same interview land on one partition in order.
func (p *Producer) EnqueueFeedback(ctx domain.Context, payload domain.FeedbackJobPayload) (string, error) {
	if payload.SubmittedAt.IsZero() {
		payload.SubmittedAt = time.Now().UTC()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.enqueue: marshal payload: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(payload.InterviewID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: headerInterviewID, Value: []byte(payload.InterviewID)},
			{Key: headerRequestID, Value: []byte(payload.RequestID)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		slog.Error("failed to publish feedback job", slog.String("interview_id", payload.InterviewID), slog.String("topic", p.topic), slog.Any("error", err))
		return "", fmt.Errorf("op=redpanda.enqueue: %w", err)
	}
	slog.Debug("feedback job published",
		slog.String("interview_id", payload.InterviewID),
		slog.String("topic", p.topic),
		slog.Int64("offset", rec.Offset),
		slog.Int("partition", int(rec.Partition)))
	return payload.InterviewID, nil
}

// Ping checks broker reachability for readiness probes.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

func newTracer() *kotel.Tracer {
	return kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
		kotel.TracerPropagator(propagation.TraceContext{}),
	)
}
