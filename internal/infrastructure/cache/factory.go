package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/phone-validation-service/internal/infrastructure/config"
)

// Manager bundles the cache services the application wires together:
// the raw cache, the provider lookup cache, and the batch result store.
type Manager struct {
	Cache   Cache
	Lookups LookupCache
	Results ResultStore

	logger *zap.Logger
	noop   bool
}

// NewManager creates the cache services. With Redis disabled it
// returns a fully functional manager whose lookup cache always misses
// and whose result store holds nothing, so callers never branch on
// cache availability.
func NewManager(cfg *config.RedisConfig, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		logger.Info("redis disabled, using no-op caches")
		return &Manager{
			Lookups: NewNoopLookupCache(),
			Results: NewNoopResultStore(),
			logger:  logger,
			noop:    true,
		}, nil
	}

	c, err := NewRedisCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	logger.Info("cache manager initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB))

	return &Manager{
		Cache:   c,
		Lookups: NewLookupCache(c, logger),
		Results: NewRedisResultStore(c, logger),
		logger:  logger,
	}, nil
}

// Enabled reports whether a real Redis backend is in use.
func (m *Manager) Enabled() bool {
	return !m.noop
}

// HealthCheck verifies the cache backend is reachable and usable.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.noop {
		return nil
	}

	if err := m.Cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	testKey := "pvs:health:probe"
	if err := m.Cache.Set(ctx, testKey, time.Now().Unix(), 10*time.Second); err != nil {
		return fmt.Errorf("cache set health check failed: %w", err)
	}
	if _, err := m.Cache.Get(ctx, testKey); err != nil {
		return fmt.Errorf("cache get health check failed: %w", err)
	}
	if err := m.Cache.Delete(ctx, testKey); err != nil {
		return fmt.Errorf("cache delete health check failed: %w", err)
	}

	return nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.noop {
		return nil
	}

	if err := m.Cache.Close(); err != nil {
		return fmt.Errorf("cache close failed: %w", err)
	}

	m.logger.Info("cache manager closed")
	return nil
}
