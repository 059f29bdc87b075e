package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
)

func setupTestRedis(t *testing.T) (*redisCache, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cfg := &config.RedisConfig{
		Enabled:      true,
		URL:          mr.Addr(),
		Password:     "",
		DB:           0,
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	logger := zaptest.NewLogger(t)

	c, err := NewRedisCache(cfg, logger)
	require.NoError(t, err)

	rc := c.(*redisCache)

	cleanup := func() {
		c.Close()
		mr.Close()
	}

	return rc, mr, cleanup
}

func TestNewRedisCache(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		c, _, cleanup := setupTestRedis(t)
		defer cleanup()

		assert.NotNil(t, c)
		assert.NotNil(t, c.client)
	})

	t.Run("nil logger", func(t *testing.T) {
		cfg := &config.RedisConfig{URL: "localhost:6379"}
		_, err := NewRedisCache(cfg, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("nil config", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		_, err := NewRedisCache(nil, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis config is required")
	})

	t.Run("connection failure", func(t *testing.T) {
		cfg := &config.RedisConfig{
			URL:         "localhost:9999",
			DialTimeout: 100 * time.Millisecond,
		}
		logger := zaptest.NewLogger(t)

		_, err := NewRedisCache(cfg, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis connection failed")
	})
}

func TestRedisCache_BasicOperations(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		err := c.Set(ctx, "test:key", "test_value", time.Hour)
		require.NoError(t, err)

		result, err := c.Get(ctx, "test:key")
		require.NoError(t, err)
		assert.Equal(t, "test_value", result)
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := c.Get(ctx, "non_existent_key")
		assert.Error(t, err)

		var notFoundErr ErrCacheKeyNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "non_existent_key", notFoundErr.Key)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:delete", "delete_me", time.Hour))

		exists, err := c.Exists(ctx, "test:delete")
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, c.Delete(ctx, "test:delete"))

		exists, err = c.Exists(ctx, "test:delete")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
	})
}

func TestRedisCache_AtomicOperations(t *testing.T) {
	c, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("SetNX", func(t *testing.T) {
		success, err := c.SetNX(ctx, "test:setnx", "first_value", time.Hour)
		require.NoError(t, err)
		assert.True(t, success)

		success, err = c.SetNX(ctx, "test:setnx", "second_value", time.Hour)
		require.NoError(t, err)
		assert.False(t, success)

		result, err := c.Get(ctx, "test:setnx")
		require.NoError(t, err)
		assert.Equal(t, "first_value", result)
	})

	t.Run("Increment", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			result, err := c.Increment(ctx, "test:incr")
			require.NoError(t, err)
			assert.Equal(t, want, result)
		}
	})

	t.Run("Expire", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:expire", "expire_me", 0))
		require.NoError(t, c.Expire(ctx, "test:expire", 1*time.Second))

		result, err := c.Get(ctx, "test:expire")
		require.NoError(t, err)
		assert.Equal(t, "expire_me", result)

		mr.FastForward(1100 * time.Millisecond)

		_, err = c.Get(ctx, "test:expire")
		var notFoundErr ErrCacheKeyNotFound
		assert.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("Expire on missing key", func(t *testing.T) {
		err := c.Expire(ctx, "test:expire-missing", time.Minute)
		var notFoundErr ErrCacheKeyNotFound
		assert.ErrorAs(t, err, &notFoundErr)
	})
}

func TestRedisCache_JSONOperations(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	type payload struct {
		Provider string   `json:"provider"`
		Valid    bool     `json:"valid"`
		Tags     []string `json:"tags"`
	}

	t.Run("SetJSON and GetJSON", func(t *testing.T) {
		original := payload{Provider: "numverify", Valid: true, Tags: []string{"carrier", "location"}}

		require.NoError(t, c.SetJSON(ctx, "test:json", original, time.Hour))

		var result payload
		require.NoError(t, c.GetJSON(ctx, "test:json", &result))
		assert.Equal(t, original, result)
	})

	t.Run("GetJSON into wrong shape", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:json-bad", "not json", time.Hour))

		var result payload
		err := c.GetJSON(ctx, "test:json-bad", &result)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "json unmarshal failed")
	})
}
