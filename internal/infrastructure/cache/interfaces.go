package cache

import (
	"context"
	"time"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// Cache provides a generic caching interface with support for TTL and atomic operations
type Cache interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// SetNX sets a value only if the key doesn't exist (atomic)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Increment atomically increments a numeric value
	Increment(ctx context.Context, key string) (int64, error)

	// Expire sets TTL on an existing key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// GetJSON retrieves and unmarshals JSON data
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON marshals and stores JSON data
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Ping verifies the backing connection, for readiness checks
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// LookupCache caches provider lookup responses keyed by provider and
// E.164 number, so repeated validations of the same number within the
// TTL never hit the metered external APIs. Implementations must be
// safe for concurrent use; a no-op implementation backs the
// Redis-disabled deployment.
type LookupCache interface {
	// GetResult loads a cached provider response into dest.
	// Returns ErrCacheKeyNotFound on miss.
	GetResult(ctx context.Context, provider, number string, dest interface{}) error

	// SetResult stores a provider response under the provider+number key.
	SetResult(ctx context.Context, provider, number string, value interface{}, ttl time.Duration) error
}

// ResultStore holds finished batch results for the export window, so
// a client can download the CSV of a batch it just ran. Results expire
// on their own; there is no durable persistence.
type ResultStore interface {
	// StoreResult saves a batch result under its batch ID.
	StoreResult(ctx context.Context, result *phone.BatchResult, ttl time.Duration) error

	// GetResult fetches a stored batch result by ID.
	GetResult(ctx context.Context, batchID string) (*phone.BatchResult, error)

	// DeleteResult removes a stored batch result.
	DeleteResult(ctx context.Context, batchID string) error
}

// Key prefixes for consistent cache key naming
const (
	LookupPrefix = "pvs:lookup:"
	BatchPrefix  = "pvs:batch:"
)

// Common TTL values
const (
	DefaultTTL       = 1 * time.Hour
	DefaultResultTTL = 15 * time.Minute
	ShortCacheTTL    = 30 * time.Second
)

// ErrCacheKeyNotFound is returned when a cache key doesn't exist
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return "cache key not found: " + e.Key
}
