package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"go.uber.org/zap"

	"github.com/davidleathers/phone-validation-service/internal/api/rest"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/cache"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/instrumentation"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/telemetry"
	"github.com/davidleathers/phone-validation-service/internal/service/batch"
	"github.com/davidleathers/phone-validation-service/internal/service/lookup"
	"github.com/davidleathers/phone-validation-service/internal/service/validation"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	zapLogger, err := newZapLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create cache logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	manager, err := cache.NewManager(&cfg.Redis, zapLogger)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer manager.Close()

	tracer := telemetry.NewOpenTelemetryTracer("phone-validation-service")

	// Lookup clients exist only when their credentials do; a missing
	// key silently skips that enrichment rather than failing startup.
	var (
		carrier  lookup.CarrierClient
		lineType lookup.LineTypeClient

		numVerify *lookup.NumVerifyClient
		twilio    *lookup.TwilioClient
	)

	if cfg.Providers.NumVerify.Enabled() {
		numVerify, err = lookup.NewNumVerifyClient(&cfg.Providers.NumVerify, manager.Lookups, logger)
		if err != nil {
			log.Fatalf("Failed to create numverify client: %v", err)
		}
		carrier = instrumentCarrier(instrumentation.NewCarrierTracedClient(numVerify, tracer))
	} else {
		logger.Info("carrier lookup disabled, no numverify credentials")
	}

	if cfg.Providers.Twilio.Enabled() {
		twilio, err = lookup.NewTwilioClient(&cfg.Providers.Twilio, manager.Lookups, logger)
		if err != nil {
			log.Fatalf("Failed to create twilio client: %v", err)
		}
		lineType = instrumentLineType(instrumentation.NewLineTypeTracedClient(twilio, tracer))
	} else {
		logger.Info("line type lookup disabled, no twilio credentials")
	}

	validator := instrumentValidation(instrumentation.NewValidationTracedService(
		validation.NewService(carrier, lineType, logger), tracer))
	batchService := instrumentBatch(batch.NewService(validator, &cfg.Batch, logger))

	server, err := rest.NewServer(cfg, &rest.Services{
		Validator: validator,
		Batch:     batchService,
		Cache:     manager,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if numVerify != nil {
		server.RegisterHealthChecker(rest.NewProviderHealthChecker("numverify", numVerify.CircuitState))
	}
	if twilio != nil {
		server.RegisterHealthChecker(rest.NewProviderHealthChecker("twilio", twilio.CircuitState))
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newZapLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
