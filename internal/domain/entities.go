package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"time"
)

// Turn is one raw speaker turn as submitted by the media room: a two element
// JSON array `[role, text]`. Missing or null elements decode to "".
type Turn struct {
	Role string
	Text string
}

// UnmarshalJSON accepts `[role, text]`, `[role]`, `[role, null]` and `null`.
func (t *Turn) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = Turn{}
		return nil
	}
	var parts []*string
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	*t = Turn{}
	if len(parts) > 0 && parts[0] != nil {
		t.Role = *parts[0]
	}
	if len(parts) > 1 && parts[1] != nil {
		t.Text = *parts[1]
	}
	return nil
}

// MarshalJSON renders the turn back to its array form.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Role, t.Text})
}

// Exchange is one assistant question paired with the client's reply.
type Exchange struct {
	Assistant string `json:"assistant"`
	Client    string `json:"client"`
}

// Label is the closed verdict vocabulary of a feedback item.
type Label string

const (
	LabelGood             Label = "GOOD"
	LabelNeedsImprovement Label = "NEEDS_IMPROVEMENT"
)

// Known reports whether the label belongs to the closed vocabulary.
func (l Label) Known() bool { return l == LabelGood || l == LabelNeedsImprovement }

// FeedbackItem is the model's verdict on one exchange.
type FeedbackItem struct {
	Label                     Label   `json:"label"`
	Question                  string  `json:"question"`
	YourAnswer                string  `json:"yourAnswer"`
	Feedback                  string  `json:"feedback"`
	Category                  *string `json:"category"`
	SuggestionsForImprovement *string `json:"suggestionsForImprovement"`
}

// InterviewSummary is the overall performance block. Score is kept as the
// model wrote it; use ScoreValue for comparisons.
type InterviewSummary struct {
	RelevantResponses        string `json:"relevantResponses"`
	ClarityAndStructure      string `json:"clarityAndStructure"`
	ProfessionalLanguage     string `json:"professionalLanguage"`
	InitialIdeas             string `json:"initialIdeas"`
	AdditionalNotableAspects string `json:"additionalNotableAspects"`
	Score                    string `json:"score"`
}

var leadingInt = regexp.MustCompile(`\d+`)

// ScoreValue extracts the first integer found in Score ("7/10" -> 7).
// ok is false when Score carries no digits.
func (s InterviewSummary) ScoreValue() (value int, ok bool) {
	m := leadingInt.FindString(s.Score)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FeedbackAggregate is the structured result for one interview.
// Summary is nil only when the model emitted no summary label at all.
type FeedbackAggregate struct {
	Feedback []FeedbackItem    `json:"feedback"`
	Summary  *InterviewSummary `json:"summary"`
}

// Empty reports the total-parse-failure shape: no items and no summary.
func (a FeedbackAggregate) Empty() bool { return len(a.Feedback) == 0 && a.Summary == nil }

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed without a new begin.
func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

// JobState is the polled status snapshot for one interview.
type JobState struct {
	Status    JobStatus          `json:"status"`
	Data      *FeedbackAggregate `json:"data"`
	Error     *string            `json:"error"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// StaleJob is a processing entry returned to the stuck-job sweeper.
type StaleJob struct {
	InterviewID string
	UpdatedAt   time.Time
}

// FeedbackJobPayload is the queue message for one feedback job.
type FeedbackJobPayload struct {
	InterviewID string     `json:"interviewId"`
	Transcript  []Exchange `json:"transcript"`
	RequestID   string     `json:"requestId,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

type User struct {
	ID        string
	AuthID    string
	Name      string
	Email     string
	CreatedAt time.Time
}

type Interview struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Questions      []string  `json:"questions"`
	Skills         []string  `json:"skills"`
	JobDescription string    `json:"jobDescription"`
	CreatedAt      time.Time `json:"createdAt"`
}

// StoredFeedback is a persisted aggregate read back by interview id.
type StoredFeedback struct {
	DetailID    string
	InterviewID string
	Video       string
	Aggregate   FeedbackAggregate
	CreatedAt   time.Time
}

// Question generation inputs

type QuestionKind string

const (
	QuestionsCustom   QuestionKind = "CUSTOM"
	QuestionsPersonal QuestionKind = "PERSONAL"
)

type Experience struct {
	Position    string `json:"position"`
	Company     string `json:"company"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GenerationConfig is fixed per completion client instance; callers never
// pass sampling parameters per request.
type GenerationConfig struct {
	Model             string
	SystemInstruction string
	Temperature       float32
	TopP              float32
	TopK              int32
	MaxOutputTokens   int32
}

// Ports

type StatusStore interface {
	Begin(ctx Context, interviewID string) error
	Complete(ctx Context, interviewID string, agg FeedbackAggregate) error
	Fail(ctx Context, interviewID string, errMsg string) error
	Read(ctx Context, interviewID string) (JobState, error)
}

// FeedbackStore exposes the primitives the persistence coordinator composes.
// Each call commits on its own; there is no enclosing transaction. Position
// only orders items on read-back.
type FeedbackStore interface {
	InsertDetail(ctx Context, interviewID string) (string, error)
	InsertFeedbackItem(ctx Context, detailID string, position int, item FeedbackItem) error
	InsertSummary(ctx Context, detailID string, s InterviewSummary) error
	DeleteDetail(ctx Context, detailID string) error
	GetByInterviewID(ctx Context, interviewID string) (StoredFeedback, error)
}

type UserRepository interface {
	GetByAuthID(ctx Context, authID string) (User, error)
}

type InterviewRepository interface {
	Get(ctx Context, id string) (Interview, error)
}

type Queue interface {
	EnqueueFeedback(ctx Context, payload FeedbackJobPayload) (string, error)
}

// CompletionClient is the boundary over the text generation provider.
type CompletionClient interface {
	Complete(ctx Context, prompt string) (string, error)
}

// Context is an alias so ports read the same across adapters.
type Context = context.Context
