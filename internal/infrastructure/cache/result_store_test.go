package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
	"github.com/davidleathers/phone-validation-service/internal/testutil/fixtures"
)

func testBatchResult(t *testing.T, batchID string) *phone.BatchResult {
	rec := fixtures.NewRecordBuilder(t).Build()
	return phone.NewBatchResult(batchID, []phone.Record{*rec})
}

func TestResultStore_RoundTrip(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewRedisResultStore(c, zaptest.NewLogger(t))
	ctx := context.Background()

	original := testBatchResult(t, "batch-a")
	require.NoError(t, store.StoreResult(ctx, original, time.Minute))

	got, err := store.GetResult(ctx, "batch-a")
	require.NoError(t, err)
	assert.Equal(t, original.BatchID, got.BatchID)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "+12025550142", got.Records[0].OriginalNumber)
	assert.True(t, got.Records[0].ValidLib)
	assert.Equal(t, 1, got.Summary.Total)
}

func TestResultStore_MissReturnsNotFound(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewRedisResultStore(c, zaptest.NewLogger(t))

	_, err := store.GetResult(context.Background(), "missing-batch")
	require.Error(t, err)
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeNotFound))
}

func TestResultStore_Expiry(t *testing.T) {
	c, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewRedisResultStore(c, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, store.StoreResult(ctx, testBatchResult(t, "batch-b"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.GetResult(ctx, "batch-b")
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeNotFound))
}

func TestResultStore_Delete(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewRedisResultStore(c, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, store.StoreResult(ctx, testBatchResult(t, "batch-c"), time.Minute))
	require.NoError(t, store.DeleteResult(ctx, "batch-c"))

	_, err := store.GetResult(ctx, "batch-c")
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeNotFound))
}

func TestResultStore_RejectsEmptyBatchID(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewRedisResultStore(c, zaptest.NewLogger(t))

	err := store.StoreResult(context.Background(), &phone.BatchResult{}, time.Minute)
	require.Error(t, err)
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeValidation))
}

func TestNoopResultStore(t *testing.T) {
	store := NewNoopResultStore()
	ctx := context.Background()

	require.NoError(t, store.StoreResult(ctx, testBatchResult(t, "batch-d"), time.Minute))

	_, err := store.GetResult(ctx, "batch-d")
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeNotFound))

	assert.NoError(t, store.DeleteResult(ctx, "batch-d"))
}
