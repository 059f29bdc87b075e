package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Providers ProvidersConfig `koanf:"providers"`
	Batch     BatchConfig     `koanf:"batch"`
	Redis     RedisConfig     `koanf:"redis"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type ProvidersConfig struct {
	NumVerify NumVerifyConfig `koanf:"numverify"`
	Twilio    TwilioConfig    `koanf:"twilio"`
}

// NumVerifyConfig drives the carrier/location lookup client. The
// lookup is enabled solely by the presence of an API key; a missing
// key silently skips that enrichment.
type NumVerifyConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	BurstSize         int           `koanf:"burst_size"`
}

func (c NumVerifyConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c NumVerifyConfig) String() string {
	return fmt.Sprintf("NumVerifyConfig{BaseURL: %s, APIKey: %s, Timeout: %s}",
		c.BaseURL, redact(c.APIKey), c.Timeout)
}

// TwilioConfig drives the line-type/fraud-risk lookup client. Both
// credentials must be present for the lookup to run.
type TwilioConfig struct {
	BaseURL           string        `koanf:"base_url"`
	AccountSID        string        `koanf:"account_sid"`
	AuthToken         string        `koanf:"auth_token"`
	Timeout           time.Duration `koanf:"timeout"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	BurstSize         int           `koanf:"burst_size"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

func (c TwilioConfig) String() string {
	return fmt.Sprintf("TwilioConfig{BaseURL: %s, AccountSID: %s, AuthToken: %s, Timeout: %s}",
		c.BaseURL, redact(c.AccountSID), redact(c.AuthToken), c.Timeout)
}

type BatchConfig struct {
	MaxRows     int           `koanf:"max_rows"`
	Concurrency int           `koanf:"concurrency"`
	ResultTTL   time.Duration `koanf:"result_ttl"`
}

type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and PVS_-prefixed environment variables, in increasing precedence.
// Section separators in env names are double underscores so snake_case
// keys survive: PVS_PROVIDERS__NUMVERIFY__API_KEY -> providers.numverify.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	if path == "" {
		path = "configs/config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !strings.Contains(err.Error(), "no such file") {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider("PVS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PVS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns the runnable zero-credential configuration:
// both lookups disabled, Redis off, telemetry off.
func DefaultConfig() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  55 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  16 << 20,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Providers: ProvidersConfig{
			NumVerify: NumVerifyConfig{
				BaseURL:           "http://apilayer.net",
				Timeout:           10 * time.Second,
				CacheTTL:          time.Hour,
				RequestsPerSecond: 5,
				BurstSize:         10,
			},
			Twilio: TwilioConfig{
				BaseURL:           "https://lookups.twilio.com",
				Timeout:           10 * time.Second,
				CacheTTL:          time.Hour,
				RequestsPerSecond: 5,
				BurstSize:         10,
			},
		},
		Batch: BatchConfig{
			MaxRows:     1000,
			Concurrency: 8,
			ResultTTL:   15 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:      false,
			URL:          "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 0.1,
		},
	}
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}
