package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/interview-feedback/internal/adapter/status/redisstore"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

func newStatusStore(t *testing.T) *redisstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisstore.New(rdb, time.Hour)
}

type storedItem struct {
	position int
	item     domain.FeedbackItem
}

type storedDetail struct {
	interviewID string
	items       []storedItem
	summary     *domain.InterviewSummary
	created     time.Time
}

// memStore is an in-memory domain.FeedbackStore with per-step failure hooks.
// Deleting a detail drops its children, like the ON DELETE CASCADE schema.
type memStore struct {
	mu      sync.Mutex
	details map[string]*storedDetail

	failDetail  error
	failItemAt  int
	failItem    error
	failSummary error
	failDelete  error
	deletes     int
}

func newMemStore() *memStore {
	return &memStore{details: map[string]*storedDetail{}, failItemAt: -1}
}

func (m *memStore) InsertDetail(_ context.Context, interviewID string) (string, error) {
	if m.failDetail != nil {
		return "", m.failDetail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.details[id] = &storedDetail{interviewID: interviewID, created: time.Now()}
	return id, nil
}

func (m *memStore) InsertFeedbackItem(_ context.Context, detailID string, position int, item domain.FeedbackItem) error {
	if m.failItem != nil && position == m.failItemAt {
		return m.failItem
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[detailID]
	if !ok {
		return errors.New("fk violation")
	}
	d.items = append(d.items, storedItem{position: position, item: item})
	return nil
}

func (m *memStore) InsertSummary(_ context.Context, detailID string, s domain.InterviewSummary) error {
	if m.failSummary != nil {
		return m.failSummary
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[detailID]
	if !ok {
		return errors.New("fk violation")
	}
	d.summary = &s
	return nil
}

func (m *memStore) DeleteDetail(_ context.Context, detailID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.failDelete != nil {
		return m.failDelete
	}
	delete(m.details, detailID)
	return nil
}

func (m *memStore) GetByInterviewID(_ context.Context, interviewID string) (domain.StoredFeedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *storedDetail
	var bestID string
	for id, d := range m.details {
		if d.interviewID != interviewID || d.summary == nil {
			continue
		}
		if best == nil || d.created.After(best.created) {
			best, bestID = d, id
		}
	}
	if best == nil {
		return domain.StoredFeedback{}, domain.ErrNotFound
	}
	items := append([]storedItem(nil), best.items...)
	sort.Slice(items, func(i, j int) bool { return items[i].position < items[j].position })
	out := domain.StoredFeedback{DetailID: bestID, InterviewID: interviewID, CreatedAt: best.created}
	out.Aggregate.Feedback = []domain.FeedbackItem{}
	for _, it := range items {
		out.Aggregate.Feedback = append(out.Aggregate.Feedback, it.item)
	}
	s := *best.summary
	out.Aggregate.Summary = &s
	return out, nil
}

// rowCount counts detail rows for an interview, with or without a summary.
func (m *memStore) rowCount(interviewID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.details {
		if d.interviewID == interviewID {
			n++
		}
	}
	return n
}

type completionFunc func(ctx context.Context, prompt string) (string, error)

func (f completionFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func reply(text string) completionFunc {
	return func(context.Context, string) (string, error) { return text, nil }
}

type fixedCounter int

func (c fixedCounter) CountOrEstimate(string, string) int { return int(c) }

type limiterFunc func(key string) (bool, time.Duration)

func (f limiterFunc) Allow(_ context.Context, key string, _ int64) (bool, time.Duration, error) {
	ok, d := f(key)
	return ok, d, nil
}

func strptr(s string) *string { return &s }
