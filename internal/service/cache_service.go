package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

// CacheBackend abstracts persistence for cached payloads and pub/sub.
type CacheBackend interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Publish(ctx context.Context, channel string, payload interface{}) error
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// CacheService orchestrates cache operations and related metrics. It
// satisfies the cache dependencies of the message and speech services.
type CacheService struct {
	backend CacheBackend
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service. metrics may be nil.
func NewCacheService(backend CacheBackend, metrics *MetricsService, logger *zap.Logger, enabled bool) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{backend: backend, metrics: metrics, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.backend != nil
}

// Get retrieves a cached JSON entry. Returns ErrCacheMiss when absent or disabled.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.Enabled() {
		return appErrors.ErrCacheMiss
	}
	start := time.Now()
	err := s.backend.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Set stores a JSON value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// GetBytes retrieves a cached binary payload.
func (s *CacheService) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if !s.Enabled() {
		return nil, appErrors.ErrCacheMiss
	}
	start := time.Now()
	payload, err := s.backend.GetBytes(ctx, key)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	return payload, err
}

// SetBytes stores a binary payload in cache.
func (s *CacheService) SetBytes(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	return s.backend.SetBytes(ctx, key, payload, ttl)
}

// DeleteByPattern removes cached values matching the pattern.
func (s *CacheService) DeleteByPattern(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.backend.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// Publish forwards an event onto the pub/sub channel.
func (s *CacheService) Publish(ctx context.Context, channel string, payload interface{}) error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Publish(ctx, channel, payload)
}

// Subscribe opens a pub/sub subscription on the channel.
func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Subscribe(ctx, channel)
}
