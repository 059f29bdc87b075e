package instrumentation

import (
	"context"
	"errors"
	"strings"
	"time"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/telemetry"
	"github.com/davidleathers/phone-validation-service/internal/service/lookup"
	"github.com/davidleathers/phone-validation-service/internal/service/validation"
)

// ValidationTracedService wraps the validation aggregator with OpenTelemetry instrumentation
type ValidationTracedService struct {
	service validation.Service
	tracer  telemetry.TracerInterface
}

// NewValidationTracedService creates a new instrumented validation service
func NewValidationTracedService(service validation.Service, tracer telemetry.TracerInterface) *ValidationTracedService {
	return &ValidationTracedService{
		service: service,
		tracer:  tracer,
	}
}

// Validate instruments a single-number validation
func (s *ValidationTracedService) Validate(ctx context.Context, rawNumber string) phone.Record {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "validation", "Validate")
	defer span.End()

	startTime := time.Now()
	record := s.service.Validate(ctx, rawNumber)
	latencyUS := float64(time.Since(startTime).Microseconds())

	// Validate never fails outright; degraded lookups surface as
	// record errors, which the span carries as attributes.
	s.tracer.SetAttributes(span, map[string]interface{}{
		"validation.valid_lib":  record.ValidLib,
		"validation.errors":     len(record.Errors),
		"validation.latency_us": latencyUS,
	})
	if record.Country != nil {
		s.tracer.SetAttributes(span, map[string]interface{}{
			"validation.country": *record.Country,
		})
	}

	return record
}

// CarrierTracedClient wraps a carrier lookup client with OpenTelemetry instrumentation
type CarrierTracedClient struct {
	client lookup.CarrierClient
	tracer telemetry.TracerInterface
}

// NewCarrierTracedClient creates a new instrumented carrier client
func NewCarrierTracedClient(client lookup.CarrierClient, tracer telemetry.TracerInterface) *CarrierTracedClient {
	return &CarrierTracedClient{
		client: client,
		tracer: tracer,
	}
}

func (c *CarrierTracedClient) Name() string {
	return c.client.Name()
}

// Lookup instruments the outbound carrier lookup
func (c *CarrierTracedClient) Lookup(ctx context.Context, number values.PhoneNumber) (*lookup.CarrierResult, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, c.tracer, c.client.Name(), "carrier")
	defer span.End()

	result, err := c.client.Lookup(ctx, number)
	if err != nil {
		c.tracer.RecordError(span, err, "carrier lookup failed")
		c.tracer.SetAttributes(span, map[string]interface{}{
			"error.type": errorType(err),
		})
		return nil, err
	}

	c.tracer.SetAttributes(span, map[string]interface{}{
		"lookup.valid":   result.Valid,
		"lookup.carrier": result.Carrier,
	})
	return result, nil
}

// LineTypeTracedClient wraps a line-type lookup client with OpenTelemetry instrumentation
type LineTypeTracedClient struct {
	client lookup.LineTypeClient
	tracer telemetry.TracerInterface
}

// NewLineTypeTracedClient creates a new instrumented line-type client
func NewLineTypeTracedClient(client lookup.LineTypeClient, tracer telemetry.TracerInterface) *LineTypeTracedClient {
	return &LineTypeTracedClient{
		client: client,
		tracer: tracer,
	}
}

func (c *LineTypeTracedClient) Name() string {
	return c.client.Name()
}

// Lookup instruments the outbound line-type lookup
func (c *LineTypeTracedClient) Lookup(ctx context.Context, number values.PhoneNumber) (*lookup.LineTypeResult, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, c.tracer, c.client.Name(), "line_type")
	defer span.End()

	result, err := c.client.Lookup(ctx, number)
	if err != nil {
		c.tracer.RecordError(span, err, "line type lookup failed")
		c.tracer.SetAttributes(span, map[string]interface{}{
			"error.type": errorType(err),
		})
		return nil, err
	}

	c.tracer.SetAttributes(span, map[string]interface{}{
		"lookup.line_type":  result.LineType,
		"lookup.fraud_risk": result.FraudRisk.String(),
		"lookup.disposable": result.Disposable,
	})
	return result, nil
}

// errorType categorizes lookup errors for better observability
func errorType(err error) string {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "unknown"
}
