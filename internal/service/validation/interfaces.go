package validation

import (
	"context"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// Service validates a single phone number by combining the offline
// parser with the configured external lookups.
type Service interface {
	// Validate never returns an error: every failure along the way is
	// recorded in the returned record's errors list.
	Validate(ctx context.Context, rawNumber string) phone.Record
}
