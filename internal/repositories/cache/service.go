package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tipjar/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Summary caching. Keys are scoped by aggregation level so a rebuild only
// overwrites its own entry.
func summaryKey(scope models.SummaryScope, scopeID, date string) string {
	return fmt.Sprintf("summary:%s:%s:%s", scope, scopeID, date)
}

func (s *CacheService) CacheSummary(ctx context.Context, summary *models.TipSummary) error {
	key := summaryKey(summary.Scope, summary.ScopeID, summary.Date)
	return s.Set(ctx, key, summary)
}

func (s *CacheService) GetSummary(ctx context.Context, scope models.SummaryScope, scopeID, date string) (*models.TipSummary, error) {
	var summary models.TipSummary
	found, err := s.Get(ctx, summaryKey(scope, scopeID, date), &summary)
	if err != nil || !found {
		return nil, err
	}
	return &summary, nil
}

// HealthCheck pings redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
