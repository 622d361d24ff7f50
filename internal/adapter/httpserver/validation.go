package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

const maxBodyBytes = 2 << 20

// feedbackRequest accepts both the media room field names and the API names.
type feedbackRequest struct {
	JobID         string        `json:"jobId" validate:"required_without=RoomID,max=256"`
	RoomID        string        `json:"room_id" validate:"required_without=JobID,max=256"`
	Transcript    []domain.Turn `json:"transcript" validate:"required_without=Transcription"`
	Transcription []domain.Turn `json:"transcription" validate:"required_without=Transcript"`
}

func (r feedbackRequest) jobID() string {
	if r.JobID != "" {
		return r.JobID
	}
	return r.RoomID
}

func (r feedbackRequest) turns() []domain.Turn {
	if len(r.Transcript) > 0 {
		return r.Transcript
	}
	return r.Transcription
}

type questionsRequest struct {
	Type           string              `json:"type" validate:"required,oneof=CUSTOM PERSONAL"`
	Skills         []string            `json:"skills" validate:"max=50,dive,max=100"`
	JobDescription string              `json:"jobDescription" validate:"max=10000"`
	Experience     []domain.Experience `json:"experience" validate:"max=30"`
	Projects       []domain.Project    `json:"projects" validate:"max=30"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New(validator.WithRequiredStructEnabled())
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// decodeBody reads a size-capped JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return domain.Invalid("body", fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
		}
		return domain.Invalid("body", "Invalid JSON body")
	}
	return validateStruct(dst)
}

// validateStruct reports the first failing field as a ValidationError.
func validateStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("body", err.Error())
	}
	fe := verrs[0]
	return domain.Invalid(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s exceeds the maximum of %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
