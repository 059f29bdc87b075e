package phone

import (
	"strings"
)

// RiskLevel classifies the fraud risk reported for a number.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// ParseRiskLevel normalizes provider risk strings. Anything
// unrecognized maps to RiskUnknown rather than failing.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// IsKnown reports whether a provider actually classified the number.
func (r RiskLevel) IsKnown() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

func (r RiskLevel) String() string {
	return string(r)
}

// Record is the merged validation result for a single phone number.
// It is created fresh per validation call and immutable once returned;
// collaborator failures are recorded in Errors, never raised.
//
// ValidLib reflects only the offline parser's verdict and is
// independent of ValidExternal, which belongs to the carrier lookup
// provider. Pointer fields are nil when the owning collaborator did
// not run or failed.
type Record struct {
	OriginalNumber  string    `json:"original_number"`
	FormattedNumber *string   `json:"formatted_number"`
	Country         *string   `json:"country"`
	ValidLib        bool      `json:"valid_lib"`
	ValidExternal   *bool     `json:"valid_external"`
	Carrier         *string   `json:"carrier"`
	Location        *string   `json:"location"`
	LineType        *string   `json:"line_type"`
	FraudRisk       RiskLevel `json:"fraud_risk"`
	Disposable      *bool     `json:"disposable"`
	Errors          []string  `json:"errors"`
}

// NewRecord creates a Record for a raw input number with no verdicts
// yet. Errors starts empty, not nil, so responses serialize as [].
func NewRecord(originalNumber string) *Record {
	return &Record{
		OriginalNumber: originalNumber,
		FraudRisk:      RiskUnknown,
		Errors:         []string{},
	}
}

// AddError appends a collaborator failure to the record.
func (r *Record) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// HasErrors reports whether any collaborator call failed.
func (r *Record) HasErrors() bool {
	return len(r.Errors) > 0
}

// IsValid reports the combined verdict: the offline parser accepted
// the number and the external provider, if consulted, did not reject
// it.
func (r *Record) IsValid() bool {
	if !r.ValidLib {
		return false
	}
	if r.ValidExternal != nil && !*r.ValidExternal {
		return false
	}
	return true
}
