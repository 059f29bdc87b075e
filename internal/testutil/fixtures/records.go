package fixtures

import (
	"testing"

	"github.com/google/uuid"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// RecordBuilder builds test validation records
type RecordBuilder struct {
	t             *testing.T
	number        string
	formatted     *string
	country       *string
	validLib      bool
	validExternal *bool
	carrier       *string
	location      *string
	lineType      *string
	fraudRisk     phone.RiskLevel
	disposable    *bool
	errors        []string
}

// NewRecordBuilder creates a new RecordBuilder defaulting to a parsed
// US number with no enrichment
func NewRecordBuilder(t *testing.T) *RecordBuilder {
	t.Helper()
	formatted := "+1 202-555-0142"
	country := "US"

	return &RecordBuilder{
		t:         t,
		number:    "+12025550142",
		formatted: &formatted,
		country:   &country,
		validLib:  true,
		fraudRisk: phone.RiskUnknown,
	}
}

// WithNumber sets the original number
func (b *RecordBuilder) WithNumber(number string) *RecordBuilder {
	b.number = number
	return b
}

// WithFormatted sets the international format
func (b *RecordBuilder) WithFormatted(formatted string) *RecordBuilder {
	b.formatted = &formatted
	return b
}

// WithCountry sets the ISO region
func (b *RecordBuilder) WithCountry(country string) *RecordBuilder {
	b.country = &country
	return b
}

// WithValidExternal sets the provider's verdict
func (b *RecordBuilder) WithValidExternal(valid bool) *RecordBuilder {
	b.validExternal = &valid
	return b
}

// WithCarrier sets the carrier name
func (b *RecordBuilder) WithCarrier(carrier string) *RecordBuilder {
	b.carrier = &carrier
	return b
}

// WithLocation sets the location
func (b *RecordBuilder) WithLocation(location string) *RecordBuilder {
	b.location = &location
	return b
}

// WithLineType sets the line type
func (b *RecordBuilder) WithLineType(lineType string) *RecordBuilder {
	b.lineType = &lineType
	return b
}

// WithFraudRisk sets the fraud risk level
func (b *RecordBuilder) WithFraudRisk(risk phone.RiskLevel) *RecordBuilder {
	b.fraudRisk = risk
	return b
}

// WithDisposable sets the disposable flag
func (b *RecordBuilder) WithDisposable(disposable bool) *RecordBuilder {
	b.disposable = &disposable
	return b
}

// WithErrors appends error messages to the record
func (b *RecordBuilder) WithErrors(errs ...string) *RecordBuilder {
	b.errors = append(b.errors, errs...)
	return b
}

// Unparsed resets the builder to a number the offline parser rejects:
// no formatted form, no country, valid_lib false.
func (b *RecordBuilder) Unparsed(number string) *RecordBuilder {
	b.number = number
	b.validLib = false
	b.formatted = nil
	b.country = nil
	return b
}

// Build creates the record
func (b *RecordBuilder) Build() *phone.Record {
	rec := phone.NewRecord(b.number)
	rec.ValidLib = b.validLib
	rec.FormattedNumber = b.formatted
	rec.Country = b.country
	rec.ValidExternal = b.validExternal
	rec.Carrier = b.carrier
	rec.Location = b.location
	rec.LineType = b.lineType
	rec.FraudRisk = b.fraudRisk
	rec.Disposable = b.disposable
	rec.Errors = append(rec.Errors, b.errors...)
	return rec
}

// RecordScenarios provides common validation record shapes
type RecordScenarios struct {
	t *testing.T
}

// NewRecordScenarios creates a new RecordScenarios helper
func NewRecordScenarios(t *testing.T) *RecordScenarios {
	t.Helper()
	return &RecordScenarios{t: t}
}

// EnrichedRecord creates a record with every lookup answered
func (rs *RecordScenarios) EnrichedRecord() *phone.Record {
	return NewRecordBuilder(rs.t).
		WithValidExternal(true).
		WithCarrier("Verizon Wireless").
		WithLocation("United States of America, Washington").
		WithLineType("mobile").
		WithFraudRisk(phone.RiskLow).
		WithDisposable(false).
		Build()
}

// UnparsedRecord creates a record the offline parser rejected
func (rs *RecordScenarios) UnparsedRecord(number string) *phone.Record {
	return NewRecordBuilder(rs.t).
		Unparsed(number).
		WithErrors("unparseable number").
		Build()
}

// DegradedRecord creates a parsed record whose lookups failed
func (rs *RecordScenarios) DegradedRecord() *phone.Record {
	return NewRecordBuilder(rs.t).
		WithErrors("numverify lookup failed: HTTP 500").
		Build()
}

// BatchResult assembles the given records into a batch result with a
// random batch ID
func (rs *RecordScenarios) BatchResult(records ...*phone.Record) *phone.BatchResult {
	rs.t.Helper()
	rows := make([]phone.Record, len(records))
	for i, r := range records {
		rows[i] = *r
	}
	return phone.NewBatchResult(uuid.NewString(), rows)
}
