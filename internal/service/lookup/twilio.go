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
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/cache"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
)

const twilioName = "twilio"

// TwilioClient implements LineTypeClient against the Twilio Lookup v1
// API with the carrier add-on.
type TwilioClient struct {
	config  *config.TwilioConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   cache.LookupCache
	breaker *breaker
	logger  *slog.Logger
}

type twilioLookupResponse struct {
	CountryCode    string         `json:"country_code"`
	PhoneNumber    string         `json:"phone_number"`
	NationalFormat string         `json:"national_format"`
	Carrier        *twilioCarrier `json:"carrier"`
	URL            string         `json:"url"`
}

type twilioCarrier struct {
	MobileCountryCode string `json:"mobile_country_code"`
	MobileNetworkCode string `json:"mobile_network_code"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	ErrorCode         *int   `json:"error_code"`
}

// twilioAPIError is the standard Twilio error payload on non-2xx
// responses, e.g. {"code": 20404, "message": "...", "status": 404}.
type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// NewTwilioClient builds a line-type lookup client. Both the account
// SID and the auth token are required.
func NewTwilioClient(cfg *config.TwilioConfig, lookups cache.LookupCache, logger *slog.Logger) (*TwilioClient, error) {
	if cfg == nil || cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, domainErrors.NewValidationError("MISSING_CREDENTIALS", "twilio account SID and auth token are required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://lookups.twilio.com"
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

	return &TwilioClient{
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
		logger:  logger.With("provider", twilioName),
	}, nil
}

func (c *TwilioClient) Name() string {
	return twilioName
}

// Lookup fetches the line type for the number. A successful lookup
// yields a baseline low fraud risk; Lookup v1 exposes no disposable
// signal, so disposable is false on success.
func (c *TwilioClient) Lookup(ctx context.Context, number values.PhoneNumber) (*LineTypeResult, error) {
	if !c.breaker.Allow() {
		return nil, domainErrors.NewLookupError(twilioName, domainErrors.LookupCodeProviderError, "circuit breaker open")
	}

	var cached LineTypeResult
	if err := c.cache.GetResult(ctx, twilioName, number.E164(), &cached); err == nil {
		return &cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domainErrors.NewLookupError(twilioName, domainErrors.LookupCodeRateLimited, "rate limiter wait aborted").WithCause(err)
	}

	reqURL := fmt.Sprintf("%s/v1/PhoneNumbers/%s?Type=carrier", c.config.BaseURL, url.PathEscape(number.E164()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domainErrors.NewLookupError(twilioName, domainErrors.LookupCodeInvalidRequest, fmt.Sprintf("build request: %v", err))
	}
	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, classifyTransport(twilioName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Twilio ships a structured error body; carry its message when
		// it decodes.
		var apiErr twilioAPIError
		detail := ""
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			detail = apiErr.Message
		}
		c.breaker.RecordFailure()
		lookupErr := classifyStatus(twilioName, resp.StatusCode, detail)
		if apiErr.Code != 0 {
			lookupErr = lookupErr.WithDetails(map[string]interface{}{"provider_code": apiErr.Code})
		}
		return nil, lookupErr
	}

	var body twilioLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.breaker.RecordFailure()
		return nil, domainErrors.NewLookupError(twilioName, domainErrors.LookupCodeInvalidResponse, "malformed response body").WithCause(err)
	}

	if body.Carrier != nil && body.Carrier.ErrorCode != nil {
		c.breaker.RecordFailure()
		return nil, domainErrors.NewLookupError(twilioName, domainErrors.LookupCodeProviderError,
			fmt.Sprintf("carrier data unavailable (error %d)", *body.Carrier.ErrorCode))
	}

	lineType := "unknown"
	if body.Carrier != nil && body.Carrier.Type != "" {
		lineType = body.Carrier.Type
	}

	result := &LineTypeResult{
		LineType:   lineType,
		FraudRisk:  phone.RiskLow,
		Disposable: false,
	}

	if err := c.cache.SetResult(ctx, twilioName, number.E164(), result, c.config.CacheTTL); err != nil {
		c.logger.DebugContext(ctx, "lookup cache write failed", "error", err)
	}

	c.breaker.RecordSuccess()
	return result, nil
}

// CircuitState exposes the breaker state for health reporting.
func (c *TwilioClient) CircuitState() CircuitState {
	return c.breaker.State()
}
