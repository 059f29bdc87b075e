package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/davidleathers/phone-validation-service/internal/infrastructure/cache"
	"github.com/davidleathers/phone-validation-service/internal/service/lookup"
)

// HealthStatus represents the outcome of a health check
type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

// HealthCheckResult is the outcome of one dependency check.
type HealthCheckResult struct {
	Status       HealthStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	LastChecked  time.Time     `json:"last_checked"`
}

// HealthChecker checks the health of a single dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheckResult
}

// HealthConfig tunes the health service.
type HealthConfig struct {
	// CacheDuration is how long a check result is reused before the
	// dependency is probed again.
	CacheDuration time.Duration
	// CheckTimeout bounds each individual dependency probe.
	CheckTimeout time.Duration
	// StartupGracePeriod is the minimum uptime before the startup
	// probe reports ready.
	StartupGracePeriod time.Duration
}

// DefaultHealthConfig returns sensible health check settings.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		CacheDuration:      10 * time.Second,
		CheckTimeout:       5 * time.Second,
		StartupGracePeriod: 10 * time.Second,
	}
}

// HealthService runs registered dependency checks and serves the
// liveness, readiness and startup probes.
type HealthService struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker

	resultCache sync.Map // checker name -> cachedResult

	config    HealthConfig
	version   string
	startTime time.Time
}

type cachedResult struct {
	result   HealthCheckResult
	cachedAt time.Time
}

// NewHealthService creates a health service with no checkers
// registered yet.
func NewHealthService(version string, cfg HealthConfig) *HealthService {
	return &HealthService{
		checkers:  make(map[string]HealthChecker),
		config:    cfg,
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker adds a dependency check to the readiness probe.
func (s *HealthService) RegisterChecker(c HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[c.Name()] = c
}

type healthResponse struct {
	Status    HealthStatus                 `json:"status"`
	Version   string                       `json:"version,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
	Uptime    string                       `json:"uptime"`
	Checks    map[string]HealthCheckResult `json:"checks,omitempty"`
}

// LivenessHandler reports whether the process is running. It never
// touches dependencies; a live process with a dead Redis is still live.
func (s *HealthService) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	s.writeHealth(w, http.StatusOK, healthResponse{
		Status:    HealthStatusPass,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// ReadinessHandler runs all registered checks and reports 503 when any
// dependency fails. Degraded (warn) dependencies keep the service in
// rotation.
func (s *HealthService) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.CheckTimeout)
	defer cancel()

	overall, checks := s.runChecks(ctx)

	status := http.StatusOK
	if overall == HealthStatusFail {
		status = http.StatusServiceUnavailable
	}

	s.writeHealth(w, status, healthResponse{
		Status:    overall,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    checks,
	})
}

// StartupHandler reports ready only after the grace period, giving
// provider clients and caches time to warm before traffic arrives.
func (s *HealthService) StartupHandler(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.startTime)
	if uptime < s.config.StartupGracePeriod {
		s.writeHealth(w, http.StatusServiceUnavailable, healthResponse{
			Status:    HealthStatusFail,
			Version:   s.version,
			Timestamp: time.Now().UTC(),
			Uptime:    uptime.Round(time.Second).String(),
		})
		return
	}

	s.writeHealth(w, http.StatusOK, healthResponse{
		Status:    HealthStatusPass,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Uptime:    uptime.Round(time.Second).String(),
	})
}

// runChecks probes every registered checker in parallel, reusing
// cached results that are still fresh.
func (s *HealthService) runChecks(ctx context.Context) (HealthStatus, map[string]HealthCheckResult) {
	s.mu.RLock()
	checkers := make([]HealthChecker, 0, len(s.checkers))
	for _, c := range s.checkers {
		checkers = append(checkers, c)
	}
	s.mu.RUnlock()

	results := make(map[string]HealthCheckResult, len(checkers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			result := s.checkWithCache(ctx, checker)

			mu.Lock()
			results[checker.Name()] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	overall := HealthStatusPass
	for _, result := range results {
		switch result.Status {
		case HealthStatusFail:
			overall = HealthStatusFail
		case HealthStatusWarn:
			if overall != HealthStatusFail {
				overall = HealthStatusWarn
			}
		}
	}
	return overall, results
}

func (s *HealthService) checkWithCache(ctx context.Context, checker HealthChecker) HealthCheckResult {
	if v, ok := s.resultCache.Load(checker.Name()); ok {
		cached := v.(cachedResult)
		if time.Since(cached.cachedAt) < s.config.CacheDuration {
			return cached.result
		}
	}

	result := checker.Check(ctx)
	result.LastChecked = time.Now().UTC()
	s.resultCache.Store(checker.Name(), cachedResult{result: result, cachedAt: time.Now()})
	return result
}

func (s *HealthService) writeHealth(w http.ResponseWriter, status int, payload healthResponse) {
	w.Header().Set("Content-Type", "application/health+json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// RedisHealthChecker verifies the cache backend round-trips.
type RedisHealthChecker struct {
	manager *cache.Manager
}

func NewRedisHealthChecker(manager *cache.Manager) *RedisHealthChecker {
	return &RedisHealthChecker{manager: manager}
}

func (c *RedisHealthChecker) Name() string {
	return "redis"
}

func (c *RedisHealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()
	if err := c.manager.HealthCheck(ctx); err != nil {
		return HealthCheckResult{
			Status:       HealthStatusFail,
			Error:        err.Error(),
			ResponseTime: time.Since(start),
		}
	}
	return HealthCheckResult{
		Status:       HealthStatusPass,
		Message:      "cache round-trip ok",
		ResponseTime: time.Since(start),
	}
}

// ProviderHealthChecker reports a lookup provider's circuit breaker
// state. An open circuit degrades readiness to warn rather than fail:
// the service still answers, records just lose that enrichment.
type ProviderHealthChecker struct {
	name  string
	state func() lookup.CircuitState
}

func NewProviderHealthChecker(name string, state func() lookup.CircuitState) *ProviderHealthChecker {
	return &ProviderHealthChecker{name: name, state: state}
}

func (c *ProviderHealthChecker) Name() string {
	return "provider:" + c.name
}

func (c *ProviderHealthChecker) Check(ctx context.Context) HealthCheckResult {
	switch state := c.state(); state {
	case lookup.CircuitOpen:
		return HealthCheckResult{
			Status:  HealthStatusWarn,
			Message: "circuit breaker open, lookups suspended",
		}
	case lookup.CircuitHalfOpen:
		return HealthCheckResult{
			Status:  HealthStatusWarn,
			Message: "circuit breaker recovering",
		}
	default:
		return HealthCheckResult{
			Status:  HealthStatusPass,
			Message: "circuit " + state.String(),
		}
	}
}
