package batch

import (
	"context"
	"io"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// Service runs bulk validations over uploaded number lists.
type Service interface {
	// Run decodes CSV input and validates every non-blank row.
	Run(ctx context.Context, reader io.Reader) (*phone.BatchResult, error)

	// RunNumbers validates the given numbers, one record per number in
	// input order. The row limit is enforced before any validation
	// starts: an oversized batch is rejected with zero rows processed.
	// Individual rows never abort the batch; their failures, including
	// mid-batch cancellation, live in that row's errors.
	RunNumbers(ctx context.Context, numbers []string) (*phone.BatchResult, error)

	// MaxRows reports the configured batch row limit.
	MaxRows() int
}
