package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/phone-validation-service/internal/domain/errors"
)

func TestNewPhoneNumber(t *testing.T) {
	tests := []struct {
		name       string
		number     string
		wantE164   string
		wantRegion string
		wantErr    bool
	}{
		{
			name:       "valid US number",
			number:     "+12025550142",
			wantE164:   "+12025550142",
			wantRegion: "US",
		},
		{
			name:       "valid US number with punctuation",
			number:     "+1 (202) 555-0142",
			wantE164:   "+12025550142",
			wantRegion: "US",
		},
		{
			name:       "valid UK mobile",
			number:     "+44 7400 123456",
			wantE164:   "+447400123456",
			wantRegion: "GB",
		},
		{
			name:       "valid FR mobile",
			number:     "+33612345678",
			wantE164:   "+33612345678",
			wantRegion: "FR",
		},
		{
			name:       "surrounding whitespace trimmed",
			number:     "  +12025550142  ",
			wantE164:   "+12025550142",
			wantRegion: "US",
		},
		{
			name:    "empty string",
			number:  "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			number:  "   ",
			wantErr: true,
		},
		{
			name:    "not a number",
			number:  "not-a-phone",
			wantErr: true,
		},
		{
			name:    "missing country code",
			number:  "2025550142",
			wantErr: true,
		},
		{
			name:    "plus but too few digits for region",
			number:  "+1234567890",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := NewPhoneNumber(tt.number)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantE164, phone.E164())
			assert.Equal(t, tt.wantE164, phone.String())
			assert.Equal(t, tt.wantRegion, phone.Region())
			assert.False(t, phone.IsEmpty())
		})
	}
}

func TestPhoneNumber_Formats(t *testing.T) {
	phone := MustNewPhoneNumber("+12025550142")

	assert.Equal(t, "+12025550142", phone.E164())
	assert.Equal(t, "+1 202-555-0142", phone.International())
	assert.Equal(t, "12025550142", phone.DigitsOnly())
	assert.Equal(t, 1, phone.CountryCode())
}

func TestPhoneNumber_NumberType(t *testing.T) {
	tests := []struct {
		name     string
		number   string
		wantType string
	}{
		{
			name:     "UK mobile",
			number:   "+447400123456",
			wantType: "mobile",
		},
		{
			name:     "US number is fixed or mobile",
			number:   "+12025550142",
			wantType: "fixed_line_or_mobile",
		},
		{
			name:     "US toll free",
			number:   "+18002345678",
			wantType: "toll_free",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone := MustNewPhoneNumber(tt.number)
			assert.Equal(t, tt.wantType, phone.NumberType())
		})
	}
}

func TestPhoneNumber_Equal(t *testing.T) {
	a := MustNewPhoneNumber("+12025550142")
	b := MustNewPhoneNumber("+1 (202) 555-0142")
	c := MustNewPhoneNumber("+447400123456")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPhoneNumber_JSONRoundTrip(t *testing.T) {
	phone := MustNewPhoneNumber("+447400123456")

	data, err := json.Marshal(phone)
	require.NoError(t, err)
	assert.Equal(t, `"+447400123456"`, string(data))

	var decoded PhoneNumber
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, phone.Equal(decoded))
	assert.Equal(t, "GB", decoded.Region())
}

func TestPhoneNumber_UnmarshalInvalid(t *testing.T) {
	var decoded PhoneNumber
	err := json.Unmarshal([]byte(`"garbage"`), &decoded)
	require.Error(t, err)
}

func TestMustNewPhoneNumber_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustNewPhoneNumber("not-a-phone")
	})
}
