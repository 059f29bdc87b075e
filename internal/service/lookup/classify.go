package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
)

// classifyStatus maps a non-2xx provider response to a typed lookup
// error. detail carries the provider's own message when one was decoded
// from the body; otherwise the status line stands in.
func classifyStatus(provider string, statusCode int, detail string) *domainErrors.AppError {
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", statusCode)
	}

	var code string
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = domainErrors.LookupCodeUnauthorized
	case http.StatusPaymentRequired:
		code = domainErrors.LookupCodeQuotaExceeded
	case http.StatusNotFound:
		code = domainErrors.LookupCodeNotFound
	case http.StatusTooManyRequests:
		code = domainErrors.LookupCodeRateLimited
	default:
		if statusCode >= 500 {
			code = domainErrors.LookupCodeProviderError
		} else {
			code = domainErrors.LookupCodeInvalidRequest
		}
	}

	return domainErrors.NewLookupError(provider, code, detail).
		WithDetails(map[string]interface{}{"status_code": statusCode})
}

// classifyTransport maps a failed round trip (no response at all) to a
// typed lookup error. Timeouts and connection failures are both
// retryable but carry distinct codes.
func classifyTransport(provider string, err error) *domainErrors.AppError {
	code := domainErrors.LookupCodeConnectionFailed
	if isTimeout(err) {
		code = domainErrors.LookupCodeTimeout
	}
	return domainErrors.NewLookupError(provider, code, "request failed").WithCause(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
