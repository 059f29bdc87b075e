package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/davidleathers/phone-validation-service/internal/domain/errors"
)

// PhoneNumber represents a validated phone number value object backed by
// the libphonenumber metadata. Numbers must carry their country code
// (E.164 style "+CC..."); there is no default region, so a bare national
// number fails to parse.
type PhoneNumber struct {
	parsed *phonenumbers.PhoneNumber
	e164   string
}

// NewPhoneNumber creates a new PhoneNumber value object with validation
func NewPhoneNumber(number string) (PhoneNumber, error) {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return PhoneNumber{}, errors.NewParseError("phone number cannot be empty")
	}

	parsed, err := phonenumbers.Parse(trimmed, "")
	if err != nil {
		return PhoneNumber{}, errors.NewParseError(fmt.Sprintf("unparseable number %q", trimmed)).WithCause(err)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return PhoneNumber{}, errors.NewParseError(fmt.Sprintf("number %q is not valid for any region", trimmed))
	}

	return PhoneNumber{
		parsed: parsed,
		e164:   phonenumbers.Format(parsed, phonenumbers.E164),
	}, nil
}

// MustNewPhoneNumber creates PhoneNumber and panics on error (for constants/tests)
func MustNewPhoneNumber(number string) PhoneNumber {
	phone, err := NewPhoneNumber(number)
	if err != nil {
		panic(err)
	}
	return phone
}

// String returns the phone number in E.164 format
func (p PhoneNumber) String() string {
	return p.e164
}

// E164 returns the phone number in E.164 format (alias for String)
func (p PhoneNumber) E164() string {
	return p.e164
}

// International returns the human-readable international format,
// e.g. "+1 202-555-0142".
func (p PhoneNumber) International() string {
	if p.parsed == nil {
		return p.e164
	}
	return phonenumbers.Format(p.parsed, phonenumbers.INTERNATIONAL)
}

// Region returns the ISO 3166-1 alpha-2 region code, e.g. "US".
func (p PhoneNumber) Region() string {
	if p.parsed == nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(p.parsed)
}

// CountryCode returns the numeric calling code, e.g. 1 for US/Canada.
func (p PhoneNumber) CountryCode() int {
	if p.parsed == nil {
		return 0
	}
	return int(p.parsed.GetCountryCode())
}

// NumberType returns the metadata-derived line classification,
// e.g. "mobile", "fixed_line", "voip". Regions where fixed and mobile
// ranges overlap report "fixed_line_or_mobile".
func (p PhoneNumber) NumberType() string {
	if p.parsed == nil {
		return "unknown"
	}
	if name, ok := numberTypeNames[phonenumbers.GetNumberType(p.parsed)]; ok {
		return name
	}
	return "unknown"
}

// Carrier returns the carrier name from the offline metadata, if known.
// Many regions (the US included) keep no carrier data offline, so empty
// is the common case.
func (p PhoneNumber) Carrier() string {
	if p.parsed == nil {
		return ""
	}
	carrier, err := phonenumbers.GetCarrierForNumber(p.parsed, "en")
	if err != nil {
		return ""
	}
	return carrier
}

// Location returns the geographic description from the offline metadata.
func (p PhoneNumber) Location() string {
	if p.parsed == nil {
		return ""
	}
	location, err := phonenumbers.GetGeocodingForNumber(p.parsed, "en")
	if err != nil {
		return ""
	}
	return location
}

// IsEmpty checks if the phone number is empty
func (p PhoneNumber) IsEmpty() bool {
	return p.e164 == ""
}

// Equal checks if two PhoneNumber values are equal
func (p PhoneNumber) Equal(other PhoneNumber) bool {
	return p.e164 == other.e164
}

// DigitsOnly returns the E.164 number without the leading "+", the shape
// some provider APIs expect in their query string.
func (p PhoneNumber) DigitsOnly() string {
	return strings.TrimPrefix(p.e164, "+")
}

// MarshalJSON implements JSON marshaling
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.e164)
}

// UnmarshalJSON implements JSON unmarshaling
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	var number string
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}

	phone, err := NewPhoneNumber(number)
	if err != nil {
		return err
	}

	*p = phone
	return nil
}

var numberTypeNames = map[phonenumbers.PhoneNumberType]string{
	phonenumbers.FIXED_LINE:           "fixed_line",
	phonenumbers.MOBILE:               "mobile",
	phonenumbers.FIXED_LINE_OR_MOBILE: "fixed_line_or_mobile",
	phonenumbers.TOLL_FREE:            "toll_free",
	phonenumbers.PREMIUM_RATE:         "premium_rate",
	phonenumbers.SHARED_COST:          "shared_cost",
	phonenumbers.VOIP:                 "voip",
	phonenumbers.PERSONAL_NUMBER:      "personal_number",
	phonenumbers.PAGER:                "pager",
	phonenumbers.UAN:                  "uan",
	phonenumbers.VOICEMAIL:            "voicemail",
	phonenumbers.UNKNOWN:              "unknown",
}
