package redpanda

import (
	"context"
	"errors"
	"strings"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// Result codes for the queue_records_processed_total metric.
const (
	CodeOK                = "OK"
	CodeSchemaInvalid     = "SCHEMA_INVALID"
	CodeUpstreamTimeout   = "UPSTREAM_TIMEOUT"
	CodeUpstreamRateLimit = "UPSTREAM_RATE_LIMIT"
	CodeModel             = "MODEL_ERROR"
	CodePersistence       = "PERSISTENCE_ERROR"
	CodeInternal          = "INTERNAL"
)

var errSchemaInvalid = errors.New("schema invalid")

// classifyFailureCode maps a handler error to a stable metric label. Typed
// errors are matched first; the message is a fallback for wrapped foreign errors.
func classifyFailureCode(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, errSchemaInvalid):
		return CodeSchemaInvalid
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeUpstreamTimeout
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return CodeUpstreamRateLimit
	case errors.Is(err, domain.ErrModel):
		return CodeModel
	case errors.Is(err, domain.ErrPersistence):
		return CodePersistence
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "rate limit"):
		return CodeUpstreamRateLimit
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"):
		return CodeUpstreamTimeout
	case strings.Contains(s, "invalid json"):
		return CodeSchemaInvalid
	default:
		return CodeInternal
	}
}
