package batch

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// exportHeader lists the CSV export columns in wire-field order.
var exportHeader = []string{
	"original_number",
	"formatted_number",
	"country",
	"valid_lib",
	"valid_external",
	"carrier",
	"location",
	"line_type",
	"fraud_risk",
	"disposable",
	"errors",
}

// ReadNumbers extracts phone numbers from CSV input: first column of
// each row, whitespace trimmed. Blank rows are skipped and produce no
// output entry. A first row whose leading cell carries no digits is
// treated as a header row and skipped.
func ReadNumbers(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	numbers := make([]string, 0, 64)
	firstRow := true
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, domainErrors.NewValidationError("MALFORMED_CSV", "could not parse CSV input").WithCause(err)
		}

		if len(row) == 0 {
			continue
		}
		number := strings.TrimSpace(row[0])

		if firstRow {
			firstRow = false
			if number != "" && !strings.ContainsAny(number, "0123456789") {
				continue
			}
		}

		if number == "" {
			continue
		}
		numbers = append(numbers, number)
	}

	return numbers, nil
}

// WriteResults renders a batch result as CSV with one row per record.
// Null fields become empty cells; the errors column joins entries with
// "; ".
func WriteResults(w io.Writer, result *phone.BatchResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return domainErrors.Wrap(err, "write CSV header")
	}
	for i := range result.Records {
		if err := writer.Write(exportRow(&result.Records[i])); err != nil {
			return domainErrors.Wrap(err, "write CSV row")
		}
	}

	writer.Flush()
	return writer.Error()
}

func exportRow(rec *phone.Record) []string {
	return []string{
		rec.OriginalNumber,
		stringOrEmpty(rec.FormattedNumber),
		stringOrEmpty(rec.Country),
		strconv.FormatBool(rec.ValidLib),
		boolOrEmpty(rec.ValidExternal),
		stringOrEmpty(rec.Carrier),
		stringOrEmpty(rec.Location),
		stringOrEmpty(rec.LineType),
		rec.FraudRisk.String(),
		boolOrEmpty(rec.Disposable),
		strings.Join(rec.Errors, "; "),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolOrEmpty(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
