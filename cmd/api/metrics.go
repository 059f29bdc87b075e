package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
	"github.com/davidleathers/phone-validation-service/internal/service/batch"
	"github.com/davidleathers/phone-validation-service/internal/service/lookup"
	"github.com/davidleathers/phone-validation-service/internal/service/validation"
)

var (
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pvs",
			Subsystem: "validation",
			Name:      "records_total",
			Help:      "Validation outcomes by verdict",
		},
		[]string{"outcome"},
	)

	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pvs",
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Provider lookups by outcome",
		},
		[]string{"provider", "status"},
	)

	batchRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pvs",
			Subsystem: "batch",
			Name:      "rows",
			Help:      "Rows per accepted batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6), // 1 to 1024
		},
	)
)

// instrumentValidation counts every validation by verdict. A record
// that stayed valid but lost an enrichment counts as valid_degraded.
func instrumentValidation(inner validation.Service) validation.Service {
	return instrumentedValidator{inner: inner}
}

type instrumentedValidator struct {
	inner validation.Service
}

func (v instrumentedValidator) Validate(ctx context.Context, raw string) phone.Record {
	record := v.inner.Validate(ctx, raw)
	validationsTotal.WithLabelValues(validationOutcome(&record)).Inc()
	return record
}

func validationOutcome(record *phone.Record) string {
	switch {
	case record.IsValid() && record.HasErrors():
		return "valid_degraded"
	case record.IsValid():
		return "valid"
	default:
		return "invalid"
	}
}

// instrumentCarrier counts carrier lookups by provider and outcome.
func instrumentCarrier(inner lookup.CarrierClient) lookup.CarrierClient {
	return instrumentedCarrier{inner: inner}
}

type instrumentedCarrier struct {
	inner lookup.CarrierClient
}

func (c instrumentedCarrier) Name() string {
	return c.inner.Name()
}

func (c instrumentedCarrier) Lookup(ctx context.Context, number values.PhoneNumber) (*lookup.CarrierResult, error) {
	result, err := c.inner.Lookup(ctx, number)
	lookupsTotal.WithLabelValues(c.inner.Name(), lookupStatus(err)).Inc()
	return result, err
}

// instrumentLineType counts line-type lookups by provider and outcome.
func instrumentLineType(inner lookup.LineTypeClient) lookup.LineTypeClient {
	return instrumentedLineType{inner: inner}
}

type instrumentedLineType struct {
	inner lookup.LineTypeClient
}

func (c instrumentedLineType) Name() string {
	return c.inner.Name()
}

func (c instrumentedLineType) Lookup(ctx context.Context, number values.PhoneNumber) (*lookup.LineTypeResult, error) {
	result, err := c.inner.Lookup(ctx, number)
	lookupsTotal.WithLabelValues(c.inner.Name(), lookupStatus(err)).Inc()
	return result, err
}

func lookupStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}

// instrumentBatch observes the size of every accepted batch.
func instrumentBatch(inner batch.Service) batch.Service {
	return instrumentedBatch{inner: inner}
}

type instrumentedBatch struct {
	inner batch.Service
}

func (b instrumentedBatch) Run(ctx context.Context, reader io.Reader) (*phone.BatchResult, error) {
	result, err := b.inner.Run(ctx, reader)
	if err == nil {
		batchRows.Observe(float64(result.Summary.Total))
	}
	return result, err
}

func (b instrumentedBatch) RunNumbers(ctx context.Context, numbers []string) (*phone.BatchResult, error) {
	result, err := b.inner.RunNumbers(ctx, numbers)
	if err == nil {
		batchRows.Observe(float64(result.Summary.Total))
	}
	return result, err
}

func (b instrumentedBatch) MaxRows() int {
	return b.inner.MaxRows()
}
