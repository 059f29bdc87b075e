package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
)

func newTwilioTestClient(t *testing.T, serverURL string) *TwilioClient {
	t.Helper()

	cfg := &config.TwilioConfig{
		BaseURL:           serverURL,
		AccountSID:        "ACtest",
		AuthToken:         "secret",
		Timeout:           2 * time.Second,
		CacheTTL:          time.Minute,
		RequestsPerSecond: 100,
		BurstSize:         100,
	}
	client, err := NewTwilioClient(cfg, nil, discardLogger())
	require.NoError(t, err)
	return client
}

func TestNewTwilioClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.TwilioConfig
	}{
		{"nil config", nil},
		{"missing SID", &config.TwilioConfig{AuthToken: "secret"}},
		{"missing token", &config.TwilioConfig{AccountSID: "ACtest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTwilioClient(tt.cfg, nil, nil)
			require.Error(t, err)
		})
	}

	t.Run("defaults filled", func(t *testing.T) {
		cfg := &config.TwilioConfig{AccountSID: "ACtest", AuthToken: "secret"}
		client, err := NewTwilioClient(cfg, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://lookups.twilio.com", client.config.BaseURL)
		assert.Equal(t, 10*time.Second, client.config.Timeout)
		assert.Equal(t, "twilio", client.Name())
	})
}

func TestTwilioClient_Lookup_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/PhoneNumbers/+12025550142", r.URL.Path)
		assert.Equal(t, "carrier", r.URL.Query().Get("Type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ACtest", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"country_code": "US",
			"phone_number": "+12025550142",
			"national_format": "(202) 555-0142",
			"carrier": {
				"mobile_country_code": "310",
				"mobile_network_code": "456",
				"name": "Verizon Wireless",
				"type": "mobile",
				"error_code": null
			}
		}`)
	}))
	defer server.Close()

	client := newTwilioTestClient(t, server.URL)
	result, err := client.Lookup(context.Background(), values.MustNewPhoneNumber("+12025550142"))

	require.NoError(t, err)
	assert.Equal(t, "mobile", result.LineType)
	assert.Equal(t, phone.RiskLow, result.FraudRisk)
	assert.False(t, result.Disposable)
}

func TestTwilioClient_Lookup_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":20404,"message":"The requested resource was not found","more_info":"https://www.twilio.com/docs/errors/20404","status":404}`)
	}))
	defer server.Close()

	client := newTwilioTestClient(t, server.URL)
	_, err := client.Lookup(context.Background(), values.MustNewPhoneNumber("+12025550142"))

	var appErr *domainErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainErrors.LookupCodeNotFound, appErr.Code)
	assert.False(t, appErr.Retryable, "provider verdict on the number should not retry")
	assert.Contains(t, appErr.Message, "was not found")
	assert.Equal(t, 20404, appErr.Details["provider_code"])
}

func TestTwilioClient_Lookup_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  string
		wantRetry bool
	}{
		{"unauthorized", http.StatusUnauthorized, domainErrors.LookupCodeUnauthorized, false},
		{"too many requests", http.StatusTooManyRequests, domainErrors.LookupCodeRateLimited, true},
		{"server error", http.StatusInternalServerError, domainErrors.LookupCodeProviderError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTwilioTestClient(t, server.URL)
			_, err := client.Lookup(context.Background(), values.MustNewPhoneNumber("+12025550142"))

			var appErr *domainErrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantRetry, appErr.Retryable)
		})
	}
}

func TestTwilioClient_Lookup_CarrierError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"phone_number":"+12025550142","carrier":{"error_code":60600}}`)
	}))
	defer server.Close()

	client := newTwilioTestClient(t, server.URL)
	_, err := client.Lookup(context.Background(), values.MustNewPhoneNumber("+12025550142"))

	var appErr *domainErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainErrors.LookupCodeProviderError, appErr.Code)
	assert.Contains(t, appErr.Message, "60600")
}

func TestTwilioClient_Lookup_MissingCarrier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"phone_number":"+12025550142","country_code":"US"}`)
	}))
	defer server.Close()

	client := newTwilioTestClient(t, server.URL)
	result, err := client.Lookup(context.Background(), values.MustNewPhoneNumber("+12025550142"))

	require.NoError(t, err)
	assert.Equal(t, "unknown", result.LineType)
	assert.Equal(t, phone.RiskLow, result.FraudRisk)
}

func TestTwilioClient_Lookup_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>definitely not json</html>")
	}))
	defer server.Close()

	client := newTwilioTestClient(t, server.URL)
	_, err := client.Lookup(context.Background(), values.MustNewPhoneNumber("+12025550142"))

	var appErr *domainErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainErrors.LookupCodeInvalidResponse, appErr.Code)
}

func TestTwilioClient_Lookup_UsesCache(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"phone_number":"+12025550142","carrier":{"name":"Verizon Wireless","type":"mobile"}}`)
	}))
	defer server.Close()

	cfg := &config.TwilioConfig{
		BaseURL:           server.URL,
		AccountSID:        "ACtest",
		AuthToken:         "secret",
		Timeout:           2 * time.Second,
		CacheTTL:          time.Minute,
		RequestsPerSecond: 100,
		BurstSize:         100,
	}
	client, err := NewTwilioClient(cfg, newLookupCache(t), discardLogger())
	require.NoError(t, err)

	number := values.MustNewPhoneNumber("+12025550142")

	first, err := client.Lookup(context.Background(), number)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	second, err := client.Lookup(context.Background(), number)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "second lookup should be served from cache")
	assert.Equal(t, first, second)
}
