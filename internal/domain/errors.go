package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrModel             = errors.New("model error")
	ErrPersistence       = errors.New("persistence error")
	ErrInternal          = errors.New("internal error")
)

// ValidationError rejects a submission before any job is registered.
// Kind is ErrInvalidArgument for malformed input and ErrNotFound for an
// unknown user or interview reference.
type ValidationError struct {
	Field  string
	Reason string
	Code   string
	Kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Kind == nil {
		return ErrInvalidArgument
	}
	return e.Kind
}

// Invalid builds a malformed-input validation error.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Code: "INVALID_ARGUMENT", Kind: ErrInvalidArgument}
}

// UnknownReference builds a validation error for a reference that does not resolve.
func UnknownReference(field, code, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Code: code, Kind: ErrNotFound}
}

type ModelCause string

const (
	ModelCauseTimeout   ModelCause = "timeout"
	ModelCauseRateLimit ModelCause = "rate_limit"
	ModelCauseAuth      ModelCause = "auth"
	ModelCauseNetwork   ModelCause = "network"
	ModelCauseUpstream  ModelCause = "upstream"
	ModelCauseMalformed ModelCause = "malformed_response"
)

// ModelError folds every completion failure into one kind. The cause is kept
// for logs and so that a timeout stays distinguishable in the job status.
type ModelError struct {
	Provider string
	Cause    ModelCause
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Cause, e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func (e *ModelError) Is(target error) bool {
	switch target {
	case ErrModel:
		return true
	case ErrUpstreamTimeout:
		return e.Cause == ModelCauseTimeout
	case ErrUpstreamRateLimit:
		return e.Cause == ModelCauseRateLimit
	}
	return false
}

// Timeout reports whether the call ran past its deadline.
func (e *ModelError) Timeout() bool { return e.Cause == ModelCauseTimeout }

type PersistenceStage string

const (
	StageInterviewDetail PersistenceStage = "interview_detail"
	StageFeedbackItem    PersistenceStage = "feedback_item"
	StageSummary         PersistenceStage = "summary"
)

// PersistenceError reports where an aggregate write failed. CompensationErr is
// set when the compensating delete of the parent row failed too, which leaves
// an orphaned detail row behind.
type PersistenceError struct {
	Stage           PersistenceStage
	Cause           error
	CompensationErr error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("persist %s: %v", e.Stage, e.Cause)
	if e.CompensationErr != nil {
		msg += fmt.Sprintf("; compensating delete failed: %v", e.CompensationErr)
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Compensated reports whether a child failure was rolled back cleanly.
func (e *PersistenceError) Compensated() bool {
	return e.Stage != StageInterviewDetail && e.CompensationErr == nil
}

// Orphaned reports the double-fault case.
func (e *PersistenceError) Orphaned() bool { return e.CompensationErr != nil }
