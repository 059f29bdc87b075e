package lookup

import (
	"context"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
)

// CarrierClient resolves carrier and location data for a parsed number
// through an external provider. Implementations own their rate limiting,
// caching, and circuit breaking; callers see only the result or a typed
// lookup error.
type CarrierClient interface {
	// Name identifies the provider in errors, logs, and cache keys.
	Name() string

	// Lookup fetches carrier data for the number. Errors are always
	// *errors.AppError with type lookup_error.
	Lookup(ctx context.Context, number values.PhoneNumber) (*CarrierResult, error)
}

// LineTypeClient resolves the line type and fraud signals for a parsed
// number through an external provider.
type LineTypeClient interface {
	Name() string
	Lookup(ctx context.Context, number values.PhoneNumber) (*LineTypeResult, error)
}

// CarrierResult is the provider-neutral carrier lookup outcome.
type CarrierResult struct {
	// Valid is the provider's own verdict on the number, independent of
	// the offline library check.
	Valid       bool   `json:"valid"`
	Carrier     string `json:"carrier"`
	Location    string `json:"location"`
	CountryName string `json:"country_name"`
}

// LineTypeResult is the provider-neutral line-type lookup outcome.
type LineTypeResult struct {
	LineType   string          `json:"line_type"`
	FraudRisk  phone.RiskLevel `json:"fraud_risk"`
	Disposable bool            `json:"disposable"`
}

// CircuitState represents the state of a client's circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}
