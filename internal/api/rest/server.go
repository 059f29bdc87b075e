package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidleathers/phone-validation-service/internal/infrastructure/cache"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
	"github.com/davidleathers/phone-validation-service/internal/service/batch"
	"github.com/davidleathers/phone-validation-service/internal/service/validation"
)

// maxValidateBodyBytes caps the single-validate JSON body. The payload
// is one phone number; anything near the cap is not a legitimate
// request.
const maxValidateBodyBytes = 4 << 10

// Services holds the service dependencies of the REST API.
type Services struct {
	Validator validation.Service
	Batch     batch.Service
	Cache     *cache.Manager
}

// Server is the HTTP server for the validation API.
type Server struct {
	config   *config.Config
	services *Services
	base     *BaseHandler
	logger   *slog.Logger
	health   *HealthService
	limiter  *inMemoryRateLimiter

	mux     *http.ServeMux
	handler http.Handler
	server  *http.Server
}

// NewServer creates a fully routed server from its dependencies.
func NewServer(cfg *config.Config, services *Services, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if services == nil || services.Validator == nil || services.Batch == nil || services.Cache == nil {
		return nil, fmt.Errorf("validator, batch and cache services are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		services: services,
		base:     NewBaseHandler(cfg.Version, logger),
		logger:   logger,
		health:   NewHealthService(cfg.Version, DefaultHealthConfig()),
		limiter: newInMemoryRateLimiter(
			cfg.Server.RateLimit.RequestsPerSecond,
			cfg.Server.RateLimit.BurstSize),
	}

	if services.Cache.Enabled() {
		s.health.RegisterChecker(NewRedisHealthChecker(services.Cache))
	}

	s.setupRoutes()
	s.handler = applyMiddleware(s.mux,
		recoveryMiddleware(logger),
		requestIDMiddleware(),
		loggingMiddleware(logger),
		timeoutMiddleware(cfg.Server.RequestTimeout),
		rateLimitMiddleware(s.limiter),
	)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	v1 := http.NewServeMux()
	v1.Handle("POST /validate",
		instrumentHandler("validate_number", http.HandlerFunc(s.handleValidateNumber)))
	v1.Handle("GET /validate/{number}",
		instrumentHandler("validate_number_by_path", http.HandlerFunc(s.handleValidateNumberByPath)))
	v1.Handle("POST /batch",
		instrumentHandler("batch_validate", http.HandlerFunc(s.handleBatchValidate)))
	v1.Handle("GET /batch/{id}/export",
		instrumentHandler("batch_export", http.HandlerFunc(s.handleBatchExport)))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	mux.HandleFunc("GET /healthz", s.health.LivenessHandler)
	mux.HandleFunc("GET /readyz", s.health.ReadinessHandler)
	mux.HandleFunc("GET /startupz", s.health.StartupHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.mux = mux
}

// RegisterHealthChecker adds a dependency probe to the readiness
// endpoint. Call before Start.
func (s *Server) RegisterHealthChecker(c HealthChecker) {
	s.health.RegisterChecker(c)
}

// Handler returns the fully wrapped HTTP handler, for tests and
// embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start runs the server until a shutdown signal or a listener error.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			"addr", s.server.Addr,
			"version", s.config.Version,
			"environment", s.config.Environment)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			s.server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}
