// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// MockStatusStore mocks domain.StatusStore.
type MockStatusStore struct{ mock.Mock }

func (m *MockStatusStore) Begin(ctx domain.Context, interviewID string) error {
	return m.Called(ctx, interviewID).Error(0)
}

func (m *MockStatusStore) Complete(ctx domain.Context, interviewID string, agg domain.FeedbackAggregate) error {
	return m.Called(ctx, interviewID, agg).Error(0)
}

func (m *MockStatusStore) Fail(ctx domain.Context, interviewID string, errMsg string) error {
	return m.Called(ctx, interviewID, errMsg).Error(0)
}

func (m *MockStatusStore) Read(ctx domain.Context, interviewID string) (domain.JobState, error) {
	args := m.Called(ctx, interviewID)
	return args.Get(0).(domain.JobState), args.Error(1)
}

// MockFeedbackStore mocks domain.FeedbackStore.
type MockFeedbackStore struct{ mock.Mock }

func (m *MockFeedbackStore) InsertDetail(ctx domain.Context, interviewID string) (string, error) {
	args := m.Called(ctx, interviewID)
	return args.String(0), args.Error(1)
}

func (m *MockFeedbackStore) InsertFeedbackItem(ctx domain.Context, detailID string, position int, item domain.FeedbackItem) error {
	return m.Called(ctx, detailID, position, item).Error(0)
}

func (m *MockFeedbackStore) InsertSummary(ctx domain.Context, detailID string, s domain.InterviewSummary) error {
	return m.Called(ctx, detailID, s).Error(0)
}

func (m *MockFeedbackStore) DeleteDetail(ctx domain.Context, detailID string) error {
	return m.Called(ctx, detailID).Error(0)
}

func (m *MockFeedbackStore) GetByInterviewID(ctx domain.Context, interviewID string) (domain.StoredFeedback, error) {
	args := m.Called(ctx, interviewID)
	return args.Get(0).(domain.StoredFeedback), args.Error(1)
}

// MockUserRepository mocks domain.UserRepository.
type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) GetByAuthID(ctx domain.Context, authID string) (domain.User, error) {
	args := m.Called(ctx, authID)
	return args.Get(0).(domain.User), args.Error(1)
}

// MockInterviewRepository mocks domain.InterviewRepository.
type MockInterviewRepository struct{ mock.Mock }

func (m *MockInterviewRepository) Get(ctx domain.Context, id string) (domain.Interview, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Interview), args.Error(1)
}

// MockQueue mocks domain.Queue.
type MockQueue struct{ mock.Mock }

func (m *MockQueue) EnqueueFeedback(ctx domain.Context, payload domain.FeedbackJobPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

// MockCompletionClient mocks domain.CompletionClient.
type MockCompletionClient struct{ mock.Mock }

func (m *MockCompletionClient) Complete(ctx domain.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
