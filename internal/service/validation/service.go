package validation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/domain/values"
	"github.com/davidleathers/phone-validation-service/internal/service/lookup"
)

// lookupTimeout bounds each external call independently of the
// caller's deadline.
const lookupTimeout = 15 * time.Second

// service implements the Service interface
type service struct {
	carrier  lookup.CarrierClient
	lineType lookup.LineTypeClient
	logger   *slog.Logger
}

// NewService creates the validation aggregator. Either client may be
// nil when its credentials are not configured; that enrichment is then
// skipped silently and the corresponding fields stay null.
func NewService(carrier lookup.CarrierClient, lineType lookup.LineTypeClient, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		carrier:  carrier,
		lineType: lineType,
		logger:   logger,
	}
}

// Validate runs the offline parser and, when the number parses, the
// configured external lookups concurrently. Lookup failures become
// entries in record.Errors; the other collaborators' fields are kept.
func (s *service) Validate(ctx context.Context, rawNumber string) phone.Record {
	record := phone.NewRecord(rawNumber)

	number, err := values.NewPhoneNumber(rawNumber)
	if err != nil {
		// Without a parsed E.164 number there is nothing to send to
		// the providers, so both lookups are skipped.
		record.AddError(err)
		s.logger.DebugContext(ctx, "parse failed",
			"number", rawNumber,
			"error", err)
		return *record
	}

	record.ValidLib = true
	formatted := number.International()
	record.FormattedNumber = &formatted
	if region := number.Region(); region != "" {
		record.Country = &region
	}

	var (
		wg          sync.WaitGroup
		carrierRes  *lookup.CarrierResult
		carrierErr  error
		lineTypeRes *lookup.LineTypeResult
		lineTypeErr error
	)

	if s.carrier != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
			defer cancel()
			carrierRes, carrierErr = s.carrier.Lookup(lctx, number)
		}()
	}

	if s.lineType != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
			defer cancel()
			lineTypeRes, lineTypeErr = s.lineType.Lookup(lctx, number)
		}()
	}

	wg.Wait()

	if s.carrier != nil {
		switch {
		case carrierErr != nil:
			record.AddError(carrierErr)
			s.logger.WarnContext(ctx, "carrier lookup failed",
				"number", number.E164(),
				"error", carrierErr)
		case carrierRes != nil:
			valid := carrierRes.Valid
			record.ValidExternal = &valid
			if carrierRes.Carrier != "" {
				carrier := carrierRes.Carrier
				record.Carrier = &carrier
			}
			if location := composeLocation(carrierRes.CountryName, carrierRes.Location); location != "" {
				record.Location = &location
			}
		}
	}

	if s.lineType != nil {
		switch {
		case lineTypeErr != nil:
			record.AddError(lineTypeErr)
			s.logger.WarnContext(ctx, "line type lookup failed",
				"number", number.E164(),
				"error", lineTypeErr)
		case lineTypeRes != nil:
			lineType := lineTypeRes.LineType
			record.LineType = &lineType
			record.FraudRisk = lineTypeRes.FraudRisk
			disposable := lineTypeRes.Disposable
			record.Disposable = &disposable
		}
	}

	return *record
}

// composeLocation joins the provider's country name and city-level
// location into the single location field.
func composeLocation(countryName, location string) string {
	switch {
	case countryName != "" && location != "":
		return countryName + ", " + location
	case countryName != "":
		return countryName
	default:
		return location
	}
}
