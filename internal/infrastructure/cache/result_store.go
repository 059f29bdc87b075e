package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// redisResultStore implements ResultStore on top of the generic Cache.
// Batch results live under pvs:batch:<id> for the export window only.
type redisResultStore struct {
	cache  Cache
	logger *zap.Logger
}

// NewRedisResultStore creates a Redis-backed batch result store.
func NewRedisResultStore(cache Cache, logger *zap.Logger) ResultStore {
	return &redisResultStore{
		cache:  cache,
		logger: logger,
	}
}

func batchKey(batchID string) string {
	return BatchPrefix + batchID
}

// StoreResult saves a batch result under its batch ID
func (s *redisResultStore) StoreResult(ctx context.Context, result *phone.BatchResult, ttl time.Duration) error {
	if result == nil || result.BatchID == "" {
		return domainErrors.NewValidationError("INVALID_BATCH_RESULT", "batch result must carry a batch ID")
	}
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}

	if err := s.cache.SetJSON(ctx, batchKey(result.BatchID), result, ttl); err != nil {
		s.logger.Error("batch result store failed",
			zap.String("batch_id", result.BatchID),
			zap.Error(err))
		return err
	}

	s.logger.Debug("batch result stored",
		zap.String("batch_id", result.BatchID),
		zap.Int("records", len(result.Records)),
		zap.Duration("ttl", ttl))

	return nil
}

// GetResult fetches a stored batch result by ID
func (s *redisResultStore) GetResult(ctx context.Context, batchID string) (*phone.BatchResult, error) {
	var result phone.BatchResult
	if err := s.cache.GetJSON(ctx, batchKey(batchID), &result); err != nil {
		var notFound ErrCacheKeyNotFound
		if errors.As(err, &notFound) {
			return nil, domainErrors.ErrResultNotFound
		}
		s.logger.Error("batch result get failed",
			zap.String("batch_id", batchID),
			zap.Error(err))
		return nil, err
	}

	return &result, nil
}

// DeleteResult removes a stored batch result
func (s *redisResultStore) DeleteResult(ctx context.Context, batchID string) error {
	return s.cache.Delete(ctx, batchKey(batchID))
}

// noopResultStore rejects reads and swallows writes, for deployments
// without Redis where batch results exist only in the HTTP response.
type noopResultStore struct{}

// NewNoopResultStore returns a ResultStore with no backing storage.
func NewNoopResultStore() ResultStore {
	return noopResultStore{}
}

func (noopResultStore) StoreResult(context.Context, *phone.BatchResult, time.Duration) error {
	return nil
}

func (noopResultStore) GetResult(context.Context, string) (*phone.BatchResult, error) {
	return nil, domainErrors.ErrResultNotFound
}

func (noopResultStore) DeleteResult(context.Context, string) error {
	return nil
}
