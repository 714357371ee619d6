// internal/httpx/httpx.go
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"libranexus/internal/apperror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Timestamp int64             `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindAlreadyExists, apperror.KindConflict, apperror.KindAlreadyReturned,
		apperror.KindHasChildren, apperror.KindHasAssociatedBooks:
		return http.StatusConflict
	case apperror.KindHierarchyCycle:
		return http.StatusLoopDetected
	case apperror.KindInvalidInput:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse. Internal errors are logged and
// their details hidden from the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Status: status, Message: err.Error(), Timestamp: time.Now().UnixMilli()}

	var verr *ValidationError
	if errors.As(err, &verr) {
		resp.Status = http.StatusBadRequest
		resp.Message = "validation failed"
		resp.Fields = verr.Fields
		status = http.StatusBadRequest
	} else if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		resp.Message = "internal server error"
	}
	WriteJSON(w, status, resp)
}

// ValidationError lists invalid request fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets validation failures match apperror.ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == apperror.ErrInvalidInput
}

// Decode reads a JSON body into dst and validates its struct tags.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.InvalidInput(fmt.Sprintf("malformed request body: %v", err))
	}
	return Validate(dst)
}

// Validate runs the validator over v and converts failures to a ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperror.InvalidInput(err.Error())
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[jsonName(fe)] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func jsonName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + fe.Param()
	case "username":
		return "can only contain letters, numbers, and underscores"
	case "gt":
		return "must be greater than " + fe.Param()
	case "datetime":
		return "must be a date formatted as " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	return ParseID(chi.URLParam(r, name), name)
}

// QueryID parses an optional positive integer query parameter.
func QueryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := ParseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseID parses raw as an identifier; identifiers are positive.
func ParseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.InvalidInput(fmt.Sprintf("%s must be an integer", name))
	}
	if id < 1 {
		return 0, apperror.InvalidInput(fmt.Sprintf("%s must be positive", name))
	}
	return id, nil
}

func init() {
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		for _, c := range fl.Field().String() {
			if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
				return false
			}
		}
		return true
	})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
