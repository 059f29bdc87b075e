package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
)

// maxNumberLength caps a single raw number at the boundary. Anything
// longer is noise, not a phone number.
const maxNumberLength = 64

// contextKey is a private type for context keys defined in this package
type contextKey string

const requestIDKey contextKey = "request_id"

// ResponseEnvelope is the standard response wrapper for all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    *ResponseMeta  `json:"meta,omitempty"`
}

// ResponseMeta contains metadata about the response
type ResponseMeta struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

// ErrorResponse provides detailed error information
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Fields  map[string][]string    `json:"fields,omitempty"`
}

// BaseHandler provides the shared plumbing for API handlers: request
// parsing, struct validation and envelope writing.
type BaseHandler struct {
	validator  *validator.Validate
	logger     *slog.Logger
	apiVersion string
}

// NewBaseHandler creates a base handler with the custom validation
// rules registered.
func NewBaseHandler(apiVersion string, logger *slog.Logger) *BaseHandler {
	v := validator.New()
	// The rule is deliberately permissive: the parser is the real
	// judge, and a number it rejects is still a valid request whose
	// record carries the parse error.
	_ = v.RegisterValidation("phone", plausiblePhone)

	if logger == nil {
		logger = slog.Default()
	}

	return &BaseHandler{
		validator:  v,
		logger:     logger,
		apiVersion: apiVersion,
	}
}

// plausiblePhone accepts any non-blank string of printable characters
// within the length cap.
func plausiblePhone(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" || len(s) > maxNumberLength {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ParseAndValidate decodes the JSON request body into v and validates
// the result against its struct tags.
func (h *BaseHandler) ParseAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return parseBodyError(err)
	}
	return h.ValidateStruct(v)
}

// ValidateStruct runs struct validation only. Validator errors are
// passed through raw so handleError can render per-field messages.
func (h *BaseHandler) ValidateStruct(v interface{}) error {
	return h.validator.Struct(v)
}

func parseBodyError(err error) error {
	// Let a body-cap overrun keep its type; handleError turns it into
	// a 413 for JSON and upload paths alike.
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return domainErrors.NewValidationError("INVALID_JSON", "request body must be valid JSON")
}

// handleError renders any error as the envelope's error shape, mapping
// domain errors to their status codes and everything unrecognized to a
// plain 500.
func (h *BaseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.writeErrorResponse(w, r, http.StatusBadRequest, formatValidationError(verrs))
		return
	}

	// An upload that trips the body cap surfaces as a wrapped
	// MaxBytesError; report it as too-large rather than malformed.
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, &ErrorResponse{
			Code:    "REQUEST_TOO_LARGE",
			Message: fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit),
		})
		return
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		h.writeErrorResponse(w, r, appErr.StatusCode, &ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	h.logger.ErrorContext(r.Context(), "unhandled error",
		"error", err,
		"path", r.URL.Path,
		"method", r.Method)
	h.writeErrorResponse(w, r, http.StatusInternalServerError, &ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "an unexpected error occurred",
	})
}

// formatValidationError converts validator errors into per-field
// messages.
func formatValidationError(verrs validator.ValidationErrors) *ErrorResponse {
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		fields[field] = append(fields[field], validationMessage(fe))
	}
	return &ErrorResponse{
		Code:    "VALIDATION_FAILED",
		Message: "request validation failed",
		Fields:  fields,
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "phone":
		return "must be a non-blank printable string of at most 64 characters"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// writeSuccess wraps data in the response envelope.
func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.writeJSON(w, status, &ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    h.responseMeta(r),
	})
}

func (h *BaseHandler) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, errResp *ErrorResponse) {
	h.writeJSON(w, status, &ResponseEnvelope{
		Success: false,
		Error:   errResp,
		Meta:    h.responseMeta(r),
	})
}

func (h *BaseHandler) responseMeta(r *http.Request) *ResponseMeta {
	return &ResponseMeta{
		RequestID: RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.apiVersion,
	}
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		h.logger.Error("response encoding failed", "error", err)
	}
}

// RequestIDFromContext returns the request ID set by the request ID
// middleware, or "" when none is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// extractClientIP returns the originating client address, preferring
// forwarding headers over the socket peer.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
