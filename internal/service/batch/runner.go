package batch

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
	"github.com/davidleathers/phone-validation-service/internal/service/validation"
)

const (
	defaultMaxRows     = 1000
	defaultConcurrency = 8
)

// runner validates uploaded number lists through the aggregator with a
// bounded worker pool.
type runner struct {
	validator validation.Service
	maxRows   int
	workers   int
	logger    *slog.Logger
}

// NewService creates the batch runner. A nil cfg falls back to the
// built-in limits.
func NewService(validator validation.Service, cfg *config.BatchConfig, logger *slog.Logger) Service {
	maxRows := defaultMaxRows
	workers := defaultConcurrency
	if cfg != nil {
		if cfg.MaxRows > 0 {
			maxRows = cfg.MaxRows
		}
		if cfg.Concurrency > 0 {
			workers = cfg.Concurrency
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &runner{
		validator: validator,
		maxRows:   maxRows,
		workers:   workers,
		logger:    logger,
	}
}

func (r *runner) MaxRows() int {
	return r.maxRows
}

func (r *runner) Run(ctx context.Context, reader io.Reader) (*phone.BatchResult, error) {
	numbers, err := ReadNumbers(reader)
	if err != nil {
		return nil, err
	}
	return r.RunNumbers(ctx, numbers)
}

func (r *runner) RunNumbers(ctx context.Context, numbers []string) (*phone.BatchResult, error) {
	if len(numbers) == 0 {
		return nil, domainErrors.NewValidationError("EMPTY_BATCH", "no phone numbers found in input")
	}
	if len(numbers) > r.maxRows {
		return nil, domainErrors.NewLimitExceededError(len(numbers), r.maxRows)
	}

	// Results land in their row's slot, so output order matches input
	// order regardless of worker completion order.
	records := make([]phone.Record, len(numbers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, number := range numbers {
		g.Go(func() error {
			// A canceled batch still answers with one record per row;
			// rows that never ran carry the cancellation as their error.
			if err := gctx.Err(); err != nil {
				rec := phone.NewRecord(number)
				rec.AddError(domainErrors.Wrap(err, "validation aborted"))
				records[i] = *rec
				return nil
			}
			records[i] = r.validator.Validate(gctx, number)
			return nil
		})
	}
	// Workers never return an error, so Wait is purely the join point.
	_ = g.Wait()

	result := phone.NewBatchResult(uuid.NewString(), records)
	r.logger.InfoContext(ctx, "batch validated",
		"batch_id", result.BatchID,
		"total", result.Summary.Total,
		"valid", result.Summary.Valid,
		"invalid", result.Summary.Invalid,
		"errored", result.Summary.Errored)
	return result, nil
}
