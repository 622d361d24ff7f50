package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/interview-feedback/internal/config"
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/internal/domain/mocks"
	"github.com/fairyhunter13/interview-feedback/internal/usecase"
)

func TestQuestionGenerate_Custom(t *testing.T) {
	t.Parallel()
	custom := &mocks.MockCompletionClient{}
	custom.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Go, SQL") && strings.Contains(p, "Backend role")
	})).Return("Here you go:\n```json\n[\"Q1\",\"Q2\",\"Q3\"]\n```", nil)
	presets := config.DefaultQuestionPresets()
	presets.Custom.Count = 2
	svc := usecase.QuestionService{Custom: custom, Presets: presets}

	qs, err := svc.Generate(context.Background(), usecase.QuestionRequest{
		Kind: domain.QuestionsCustom, Skills: []string{"Go", "SQL"}, JobDescription: "Backend role",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, qs)
	custom.AssertExpectations(t)
}

func TestQuestionGenerate_PersonalUsesItsOwnClient(t *testing.T) {
	t.Parallel()
	personal := &mocks.MockCompletionClient{}
	personal.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Engineer at Acme (2020 - 2023): APIs")
	})).Return(`["Why Acme?"]`, nil)
	custom := &mocks.MockCompletionClient{}
	svc := usecase.QuestionService{Custom: custom, Personal: personal, Presets: config.DefaultQuestionPresets()}

	qs, err := svc.Generate(context.Background(), usecase.QuestionRequest{
		Kind:       domain.QuestionsPersonal,
		Experience: []domain.Experience{{Position: "Engineer", Company: "Acme", StartDate: "2020", EndDate: "2023", Description: "APIs"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Why Acme?"}, qs)
	custom.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestQuestionGenerate_Errors(t *testing.T) {
	t.Parallel()
	client := &mocks.MockCompletionClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("no list here", nil)
	svc := usecase.QuestionService{Custom: client, Personal: client, Presets: config.DefaultQuestionPresets(), Provider: "stub"}

	_, err := svc.Generate(context.Background(), usecase.QuestionRequest{Kind: "OTHER"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Generate(context.Background(), usecase.QuestionRequest{Kind: domain.QuestionsCustom})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Generate(context.Background(), usecase.QuestionRequest{Kind: domain.QuestionsCustom, Skills: []string{"Go"}})
	require.ErrorIs(t, err, domain.ErrModel)
	var me *domain.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, domain.ModelCauseMalformed, me.Cause)
}

func TestQuestionContext(t *testing.T) {
	t.Parallel()
	interviews := &mocks.MockInterviewRepository{}
	interviews.On("Get", mock.Anything, "iv-1").Return(domain.Interview{Questions: []string{"A?", "B?"}}, nil)
	interviews.On("Get", mock.Anything, "iv-2").Return(domain.Interview{}, nil)
	svc := usecase.QuestionService{Interviews: interviews}

	got, err := svc.Context(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Equal(t, "1. A?\n2. B?", got)

	_, err = svc.Context(context.Background(), "iv-2")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
