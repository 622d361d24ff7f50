package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/observability"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	obsctx "github.com/fairyhunter13/interview-feedback/internal/observability"
)

// Handler processes one decoded feedback job.
type Handler interface {
	Process(ctx domain.Context, payload domain.FeedbackJobPayload) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx domain.Context, payload domain.FeedbackJobPayload) error

func (f HandlerFunc) Process(ctx domain.Context, payload domain.FeedbackJobPayload) error {
	return f(ctx, payload)
}

type consumerClient interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	CommitMarkedOffsets(ctx context.Context) error
	Close()
}

// ConsumerConfig configures NewConsumer.
type ConsumerConfig struct {
	Brokers        []string
	Group          string
	Topic          string
	MaxConcurrency int
}

// Consumer reads feedback jobs in a consumer group and hands them to a fixed
// pool of workers. A record's offset is marked once its handler returns,
// whatever the outcome: failures are already recorded in the status store
// and a job is only retried by resubmission.
type Consumer struct {
	client  consumerClient
	tracer  *kotel.Tracer
	handler Handler
	topic   string
	workers int
	poller  *AdaptivePoller
	jobs    chan *kgo.Record
	wg      sync.WaitGroup
}

// NewConsumer joins cfg.Group on cfg.Topic.
func NewConsumer(ctx context.Context, cfg ConsumerConfig, h Handler) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: no seed brokers provided")
	}
	if cfg.Group == "" {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: missing required group id")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	admin, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	if err := EnsureTopic(ctx, admin, cfg.Topic, 3, 1); err != nil {
		slog.Warn("failed to ensure topic", slog.String("topic", cfg.Topic), slog.Any("error", err))
	}
	admin.Close()

	tracer := newTracer()
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(tracer)).Hooks()...),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
		kgo.OnPartitionsRevoked(func(ctx context.Context, cl *kgo.Client, _ map[string][]int32) {
			if err := cl.CommitMarkedOffsets(ctx); err != nil {
				slog.Warn("commit on revoke failed", slog.Any("error", err))
			}
		}),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	slog.Info("redpanda consumer ready", slog.String("group", cfg.Group), slog.String("topic", cfg.Topic), slog.Int("workers", cfg.MaxConcurrency))
	c := NewConsumerWithClient(client, cfg.Topic, cfg.MaxConcurrency, h)
	c.tracer = tracer
	return c, nil
}

// NewConsumerWithClient builds a Consumer over an existing client.
func NewConsumerWithClient(client consumerClient, topic string, workers int, h Handler) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		client:  client,
		handler: h,
		topic:   topic,
		workers: workers,
		poller:  NewAdaptivePoller(time.Second),
		jobs:    make(chan *kgo.Record, workers),
	}
}

// Start polls until ctx is done, then drains in-flight records, commits the
// marked offsets and returns ctx.Err().
func (c *Consumer) Start(ctx context.Context) error {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
	c.fetch(ctx)
	close(c.jobs)
	c.wg.Wait()

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.client.CommitMarkedOffsets(commitCtx); err != nil {
		slog.Warn("final offset commit failed", slog.Any("error", err))
	}
	slog.Info("redpanda consumer stopped", slog.String("topic", c.topic))
	return ctx.Err()
}

func (c *Consumer) fetch(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			slog.Info("consumer client closed, stopping fetch loop")
			return
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			if ctx.Err() != nil {
				return
			}
			for _, fe := range errs {
				slog.Error("fetch error", slog.String("topic", fe.Topic), slog.Int("partition", int(fe.Partition)), slog.Any("error", fe.Err))
			}
			c.poller.RecordFailure()
			if !sleepCtx(ctx, c.poller.NextInterval()) {
				return
			}
			continue
		}

		c.poller.RecordSuccess()
		if fetches.NumRecords() == 0 {
			if !sleepCtx(ctx, c.poller.NextInterval()) {
				return
			}
			continue
		}

		stopped := false
		fetches.EachRecord(func(r *kgo.Record) {
			if stopped {
				return
			}
			select {
			case c.jobs <- r:
			case <-ctx.Done():
				stopped = true
			}
		})
		if stopped {
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context, id int) {
	defer c.wg.Done()
	for r := range c.jobs {
		err := c.processRecord(ctx, r)
		code := classifyFailureCode(err)
		observability.QueueRecordsTotal.WithLabelValues(r.Topic, code).Inc()
		if err != nil {
			slog.Warn("feedback record finished with error",
				slog.Int("worker_id", id),
				slog.String("code", code),
				slog.Int64("offset", r.Offset),
				slog.Int("partition", int(r.Partition)),
				slog.Any("error", err))
		}
		c.client.MarkCommitRecords(r)
	}
}

// processRecord decodes one record and runs the handler. The handler runs on
// a context detached from shutdown so that a started job is not abandoned.
func (c *Consumer) processRecord(ctx context.Context, r *kgo.Record) error {
	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.WithProcessSpan(r)
		ctx = context.WithoutCancel(ctx)
	} else {
		ctx, span = otel.Tracer("queue.consumer").Start(context.WithoutCancel(ctx), "ProcessFeedbackJob")
	}
	defer span.End()
	span.SetAttributes(attribute.Int64("messaging.kafka.offset", r.Offset), attribute.String("messaging.kafka.key", string(r.Key)))

	var payload domain.FeedbackJobPayload
	if err := json.Unmarshal(r.Value, &payload); err != nil {
		span.SetStatus(codes.Error, "decode")
		slog.Error("failed to decode feedback record", slog.Int64("offset", r.Offset), slog.Int("value_len", len(r.Value)), slog.Any("error", err))
		return fmt.Errorf("%w: invalid json: %v", errSchemaInvalid, err)
	}
	if payload.InterviewID == "" {
		payload.InterviewID = headerValue(r, headerInterviewID)
	}
	if payload.InterviewID == "" {
		span.SetStatus(codes.Error, "missing interview id")
		return fmt.Errorf("%w: missing interviewId", errSchemaInvalid)
	}
	if payload.RequestID == "" {
		payload.RequestID = headerValue(r, headerRequestID)
	}
	ctx, _ = obsctx.WithJob(ctx, nil, payload.InterviewID, payload.RequestID)

	if err := c.handler.Process(ctx, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Healthy reports whether polling is currently succeeding.
func (c *Consumer) Healthy() bool { return c.poller.Healthy() }

// Close closes the underlying client.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func headerValue(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
