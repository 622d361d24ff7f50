// Package redisstore keeps feedback job status snapshots in Redis with a TTL.
package redisstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

const keyPrefix = "feedback:"
const keySuffix = ":status"

// DefaultTTL applies when the store is built with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// transitionScript rewrites the entry only while it is still processing.
// It returns 1 on success, 0 when the key is absent and -1 when the entry
// is already terminal.
const transitionScript = `
local cur = redis.call("GET", KEYS[1])
if not cur then
  return 0
end
if not string.find(cur, '"status":"processing"', 1, true) then
  return -1
end
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
return 1
`

// Store implements domain.StatusStore.
type Store struct {
	rdb        redis.UniversalClient
	ttl        time.Duration
	transition *redis.Script
	now        func() time.Time
}

// New builds a Store. Entries expire ttl after their last write.
func New(rdb redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl, transition: redis.NewScript(transitionScript), now: func() time.Time { return time.Now().UTC() }}
}

// Key returns the Redis key for an interview's status entry.
func Key(interviewID string) string { return keyPrefix + interviewID + keySuffix }

// Begin overwrites any existing entry with a fresh processing snapshot.
func (s *Store) Begin(ctx domain.Context, interviewID string) error {
	tracer := otel.Tracer("status.redis")
	ctx, span := tracer.Start(ctx, "status.Begin")
	defer span.End()
	span.SetAttributes(attribute.String("interview.id", interviewID))

	b, err := json.Marshal(domain.JobState{Status: domain.JobProcessing, UpdatedAt: s.now()})
	if err != nil {
		return fmt.Errorf("op=status.begin: %w", err)
	}
	if err := s.rdb.Set(ctx, Key(interviewID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=status.begin: %w", err)
	}
	return nil
}

// Complete moves a processing entry to completed with the aggregate attached.
func (s *Store) Complete(ctx domain.Context, interviewID string, agg domain.FeedbackAggregate) error {
	tracer := otel.Tracer("status.redis")
	ctx, span := tracer.Start(ctx, "status.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("interview.id", interviewID))

	if agg.Feedback == nil {
		agg.Feedback = []domain.FeedbackItem{}
	}
	return s.move(ctx, "op=status.complete", interviewID, domain.JobState{Status: domain.JobCompleted, Data: &agg, UpdatedAt: s.now()})
}

// Fail moves a processing entry to failed with the given message.
func (s *Store) Fail(ctx domain.Context, interviewID string, errMsg string) error {
	tracer := otel.Tracer("status.redis")
	ctx, span := tracer.Start(ctx, "status.Fail")
	defer span.End()
	span.SetAttributes(attribute.String("interview.id", interviewID))

	return s.move(ctx, "op=status.fail", interviewID, domain.JobState{Status: domain.JobFailed, Error: &errMsg, UpdatedAt: s.now()})
}

func (s *Store) move(ctx domain.Context, op, interviewID string, next domain.JobState) error {
	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	secs := int64(s.ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	res, err := s.transition.Run(ctx, s.rdb, []string{Key(interviewID)}, string(b), secs).Int64()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: already terminal: %w", op, domain.ErrConflict)
	}
}

// Read returns the current snapshot or domain.ErrNotFound.
func (s *Store) Read(ctx domain.Context, interviewID string) (domain.JobState, error) {
	tracer := otel.Tracer("status.redis")
	ctx, span := tracer.Start(ctx, "status.Read")
	defer span.End()

	b, err := s.rdb.Get(ctx, Key(interviewID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.JobState{}, fmt.Errorf("op=status.read: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.JobState{}, fmt.Errorf("op=status.read: %w", err)
	}
	var st domain.JobState
	if err := json.Unmarshal(b, &st); err != nil {
		return domain.JobState{}, fmt.Errorf("op=status.read: decode: %w", err)
	}
	return st, nil
}

// ListProcessing returns entries still processing whose last update is
// older than olderThan. Keys that expire or change mid-scan are skipped.
func (s *Store) ListProcessing(ctx domain.Context, olderThan time.Duration) ([]domain.StaleJob, error) {
	tracer := otel.Tracer("status.redis")
	ctx, span := tracer.Start(ctx, "status.ListProcessing")
	defer span.End()

	cutoff := s.now().Add(-olderThan)
	var out []domain.StaleJob
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*"+keySuffix, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var st domain.JobState
		if json.Unmarshal(b, &st) != nil || st.Status != domain.JobProcessing {
			continue
		}
		if st.UpdatedAt.Before(cutoff) {
			id := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix)
			out = append(out, domain.StaleJob{InterviewID: id, UpdatedAt: st.UpdatedAt})
		}
	}
	if err := iter.Err(); err != nil {
		return out, fmt.Errorf("op=status.list_processing: %w", err)
	}
	span.SetAttributes(attribute.Int("stale.count", len(out)))
	return out, nil
}
