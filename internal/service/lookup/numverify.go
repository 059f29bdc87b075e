package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/cache"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
)

const numVerifyName = "numverify"

// NumVerifyClient implements CarrierClient against the apilayer
// NumVerify validate endpoint.
type NumVerifyClient struct {
	config  *config.NumVerifyConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   cache.LookupCache
	breaker *breaker
	logger  *slog.Logger
}

// numVerifyResponse covers both the success payload and the error
// envelope NumVerify returns with HTTP 200.
type numVerifyResponse struct {
	Valid               bool   `json:"valid"`
	Number              string `json:"number"`
	LocalFormat         string `json:"local_format"`
	InternationalFormat string `json:"international_format"`
	CountryPrefix       string `json:"country_prefix"`
	CountryCode         string `json:"country_code"`
	CountryName         string `json:"country_name"`
	Location            string `json:"location"`
	Carrier             string `json:"carrier"`
	LineType            string `json:"line_type"`

	Success *bool            `json:"success,omitempty"`
	Error   *numVerifyAPIErr `json:"error,omitempty"`
}

type numVerifyAPIErr struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

// NewNumVerifyClient builds a carrier lookup client. The API key is
// required; other config fields fall back to defaults.
func NewNumVerifyClient(cfg *config.NumVerifyConfig, lookups cache.LookupCache, logger *slog.Logger) (*NumVerifyClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, domainErrors.NewValidationError("MISSING_CREDENTIALS", "numverify API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://apilayer.net"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}

	if lookups == nil {
		lookups = cache.NewNoopLookupCache()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &NumVerifyClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		cache:   lookups,
		breaker: newBreaker(),
		logger:  logger.With("provider", numVerifyName),
	}, nil
}

func (c *NumVerifyClient) Name() string {
	return numVerifyName
}

// Lookup fetches the provider's verdict, carrier, and location for the
// number. Results are cached by E.164 form.
func (c *NumVerifyClient) Lookup(ctx context.Context, number values.PhoneNumber) (*CarrierResult, error) {
	if !c.breaker.Allow() {
		return nil, domainErrors.NewLookupError(numVerifyName, domainErrors.LookupCodeProviderError, "circuit breaker open")
	}

	var cached CarrierResult
	if err := c.cache.GetResult(ctx, numVerifyName, number.E164(), &cached); err == nil {
		return &cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domainErrors.NewLookupError(numVerifyName, domainErrors.LookupCodeRateLimited, "rate limiter wait aborted").WithCause(err)
	}

	params := url.Values{}
	params.Set("access_key", c.config.APIKey)
	params.Set("number", number.DigitsOnly())
	params.Set("format", "1")

	reqURL := fmt.Sprintf("%s/api/validate?%s", c.config.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domainErrors.NewLookupError(numVerifyName, domainErrors.LookupCodeInvalidRequest, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, classifyTransport(numVerifyName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, classifyStatus(numVerifyName, resp.StatusCode, "")
	}

	var body numVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.breaker.RecordFailure()
		return nil, domainErrors.NewLookupError(numVerifyName, domainErrors.LookupCodeInvalidResponse, "malformed response body").WithCause(err)
	}

	// NumVerify reports API-level failures as HTTP 200 with an error
	// envelope in the body.
	if body.Error != nil || (body.Success != nil && !*body.Success) {
		c.breaker.RecordFailure()
		return nil, c.envelopeError(body.Error)
	}

	result := &CarrierResult{
		Valid:       body.Valid,
		Carrier:     body.Carrier,
		Location:    body.Location,
		CountryName: body.CountryName,
	}

	if err := c.cache.SetResult(ctx, numVerifyName, number.E164(), result, c.config.CacheTTL); err != nil {
		c.logger.DebugContext(ctx, "lookup cache write failed", "error", err)
	}

	c.breaker.RecordSuccess()
	return result, nil
}

// envelopeError maps NumVerify's body-level error codes onto the shared
// lookup taxonomy. Codes follow the apilayer convention: 101 invalid
// key, 104 monthly quota reached, 106 rate limit.
func (c *NumVerifyClient) envelopeError(apiErr *numVerifyAPIErr) *domainErrors.AppError {
	if apiErr == nil {
		return domainErrors.NewLookupError(numVerifyName, domainErrors.LookupCodeProviderError, "request was not successful")
	}

	var code string
	switch apiErr.Code {
	case 101, 102, 103, 105:
		code = domainErrors.LookupCodeUnauthorized
	case 104:
		code = domainErrors.LookupCodeQuotaExceeded
	case 106:
		code = domainErrors.LookupCodeRateLimited
	case 210, 211, 310:
		code = domainErrors.LookupCodeInvalidRequest
	default:
		code = domainErrors.LookupCodeProviderError
	}

	msg := apiErr.Info
	if msg == "" {
		msg = apiErr.Type
	}
	return domainErrors.NewLookupError(numVerifyName, code, msg).
		WithDetails(map[string]interface{}{"provider_code": apiErr.Code})
}

// CircuitState exposes the breaker state for health reporting.
func (c *NumVerifyClient) CircuitState() CircuitState {
	return c.breaker.State()
}
