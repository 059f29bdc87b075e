package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/phone-validation-service/internal/service/lookup"
)

type stubChecker struct {
	name   string
	result HealthCheckResult
	calls  atomic.Int64
}

func (c *stubChecker) Name() string {
	return c.name
}

func (c *stubChecker) Check(ctx context.Context) HealthCheckResult {
	c.calls.Add(1)
	return c.result
}

func testHealthConfig() HealthConfig {
	return HealthConfig{
		CacheDuration:      time.Minute,
		CheckTimeout:       time.Second,
		StartupGracePeriod: 0,
	}
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	assert.Equal(t, "application/health+json", rec.Header().Get("Content-Type"))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthService_Liveness(t *testing.T) {
	svc := NewHealthService("test", testHealthConfig())
	svc.RegisterChecker(&stubChecker{name: "broken", result: HealthCheckResult{Status: HealthStatusFail}})

	rec := httptest.NewRecorder()
	svc.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// Liveness ignores dependencies entirely.
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeHealth(t, rec)
	assert.Equal(t, HealthStatusPass, resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestHealthService_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		results    []HealthCheckResult
		wantStatus HealthStatus
		wantCode   int
	}{
		{
			name:       "no checkers",
			wantStatus: HealthStatusPass,
			wantCode:   http.StatusOK,
		},
		{
			name: "all pass",
			results: []HealthCheckResult{
				{Status: HealthStatusPass},
				{Status: HealthStatusPass},
			},
			wantStatus: HealthStatusPass,
			wantCode:   http.StatusOK,
		},
		{
			name: "warn stays in rotation",
			results: []HealthCheckResult{
				{Status: HealthStatusPass},
				{Status: HealthStatusWarn},
			},
			wantStatus: HealthStatusWarn,
			wantCode:   http.StatusOK,
		},
		{
			name: "one failure takes the service out",
			results: []HealthCheckResult{
				{Status: HealthStatusPass},
				{Status: HealthStatusFail, Error: "connection refused"},
			},
			wantStatus: HealthStatusFail,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewHealthService("test", testHealthConfig())
			for j, result := range tt.results {
				svc.RegisterChecker(&stubChecker{
					name:   fmt.Sprintf("dep%d", j),
					result: result,
				})
			}

			rec := httptest.NewRecorder()
			svc.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			resp := decodeHealth(t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, resp.Checks, len(tt.results))
		})
	}
}

func TestHealthService_CachesCheckResults(t *testing.T) {
	checker := &stubChecker{name: "cached", result: HealthCheckResult{Status: HealthStatusPass}}
	svc := NewHealthService("test", testHealthConfig())
	svc.RegisterChecker(checker)

	for range 3 {
		rec := httptest.NewRecorder()
		svc.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int64(1), checker.calls.Load(), "fresh results are reused, not re-probed")
}

func TestHealthService_Startup(t *testing.T) {
	cfg := testHealthConfig()
	cfg.StartupGracePeriod = time.Hour
	svc := NewHealthService("test", cfg)

	rec := httptest.NewRecorder()
	svc.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/startupz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "still inside the grace period")

	svc = NewHealthService("test", testHealthConfig())
	rec = httptest.NewRecorder()
	svc.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/startupz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedisHealthChecker(t *testing.T) {
	checker := NewRedisHealthChecker(redisManager(t))
	assert.Equal(t, "redis", checker.Name())

	result := checker.Check(context.Background())
	assert.Equal(t, HealthStatusPass, result.Status)
	assert.Empty(t, result.Error)
}

func TestProviderHealthChecker(t *testing.T) {
	tests := []struct {
		state      lookup.CircuitState
		wantStatus HealthStatus
	}{
		{state: lookup.CircuitClosed, wantStatus: HealthStatusPass},
		{state: lookup.CircuitHalfOpen, wantStatus: HealthStatusWarn},
		{state: lookup.CircuitOpen, wantStatus: HealthStatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			checker := NewProviderHealthChecker("numverify", func() lookup.CircuitState {
				return tt.state
			})

			assert.Equal(t, "provider:numverify", checker.Name())
			result := checker.Check(context.Background())
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.NotEmpty(t, result.Message)
		})
	}
}
