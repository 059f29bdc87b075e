package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeParse         ErrorType = "parse_error"
	ErrorTypeLookup        ErrorType = "lookup_error"
	ErrorTypeLimitExceeded ErrorType = "limit_exceeded"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeUnavailable   ErrorType = "unavailable"
)

// Lookup error codes shared by the provider clients. Retryability is
// derived from the code: transient transport conditions retry, verdicts
// about the number itself do not.
const (
	LookupCodeTimeout          = "TIMEOUT"
	LookupCodeConnectionFailed = "CONNECTION_FAILED"
	LookupCodeRateLimited      = "RATE_LIMITED"
	LookupCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	LookupCodeUnauthorized     = "UNAUTHORIZED"
	LookupCodeNotFound         = "NOT_FOUND"
	LookupCodeInvalidRequest   = "INVALID_REQUEST"
	LookupCodeInvalidResponse  = "INVALID_RESPONSE"
	LookupCodeProviderError    = "PROVIDER_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails merges details into the error, keeping keys set by the
// constructor (such as the provider name on lookup errors).
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

// NewParseError marks a number the offline parser could not interpret.
// It is recorded into the record's error list, never raised past the
// aggregator.
func NewParseError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeParse,
		Code:       "PARSE_FAILED",
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

// NewLookupError marks an external provider failure. Like parse errors
// it is data at the aggregation boundary, not an exception path.
func NewLookupError(provider, code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeLookup,
		Code:       code,
		Message:    fmt.Sprintf("%s lookup failed: %s", provider, message),
		Retryable:  lookupCodeRetryable(code),
		StatusCode: 502,
		Details:    map[string]interface{}{"provider": provider},
	}
}

func lookupCodeRetryable(code string) bool {
	switch code {
	case LookupCodeTimeout, LookupCodeConnectionFailed, LookupCodeRateLimited, LookupCodeProviderError:
		return true
	default:
		return false
	}
}

// NewLimitExceededError rejects a batch before any row is processed.
func NewLimitExceededError(got, max int) *AppError {
	return &AppError{
		Type:       ErrorTypeLimitExceeded,
		Code:       "BATCH_TOO_LARGE",
		Message:    fmt.Sprintf("batch of %d rows exceeds maximum of %d", got, max),
		Retryable:  false,
		StatusCode: 413,
		Details:    map[string]interface{}{"rows": got, "max_rows": max},
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    message,
		Retryable:  true,
		StatusCode: 503,
	}
}

// Predefined common errors
var (
	ErrInvalidInput   = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrEmptyNumber    = NewValidationError("EMPTY_NUMBER", "Phone number must not be empty")
	ErrResultNotFound = NewNotFoundError("batch result")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
