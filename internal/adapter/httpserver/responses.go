// Package httpserver contains the HTTP handlers and middleware of the
// feedback API. Every response uses the same envelope:
// {status, message, data, error}.
package httpserver

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/internal/usecase"
)

const (
	codeInvalidArgument = "INVALID_ARGUMENT"
	codeNotFound        = "NOT_FOUND"
	codeRateLimited     = "RATE_LIMITED"
	codeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	codeModel           = "MODEL_ERROR"
	codeTimeout         = "TIMEOUT"
	codeInternal        = "INTERNAL"
)

type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: true, Message: message, Data: data})
}

// writeError maps err onto a status code and failure envelope. notFoundMsg,
// when set, replaces the message of a not-found response.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	status, code, msg := classify(err)
	if status == http.StatusNotFound && notFoundMsg != "" {
		msg = notFoundMsg
	}

	var rl *usecase.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}

	lg := LoggerFrom(r)
	if status >= http.StatusInternalServerError {
		lg.Error("request failed", "code", code, "error", err)
	} else {
		lg.Debug("request rejected", "code", code, "error", err)
	}
	writeJSON(w, status, envelope{Message: msg, Error: code})
}

func classify(err error) (status int, code, msg string) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		status = http.StatusBadRequest
		if errors.Is(ve, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		code = ve.Code
		if code == "" {
			code = codeInvalidArgument
		}
		return status, code, ve.Reason
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, codeInvalidArgument, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound, "Not found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited, "Too many submissions, please retry later"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, codeUpstreamTimeout, "The model did not answer in time"
	case errors.Is(err, domain.ErrModel):
		return http.StatusBadGateway, codeModel, "The model returned an unusable answer"
	}
	return http.StatusInternalServerError, codeInternal, "Internal server error"
}
