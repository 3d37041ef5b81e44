package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"realty/internal/domain"
)

const rateTableKey = "cache:fx:rates"

// RateCacheStore keeps the upstream rate table in Redis so replicas share one
// snapshot. The table is written as a single value and replaced wholesale.
type RateCacheStore struct {
	client redis.Cmdable
	key    string
}

// NewRateCacheStore creates a new RateCacheStore.
func NewRateCacheStore(client redis.Cmdable) *RateCacheStore {
	return &RateCacheStore{client: client, key: rateTableKey}
}

// Load returns the cached table, or nil on a cache miss.
func (s *RateCacheStore) Load(ctx context.Context) (*domain.RateTable, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var table domain.RateTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// Store replaces the cached table. Freshness is decided by the caller from
// FetchedAt, so no TTL is set here.
func (s *RateCacheStore) Store(ctx context.Context, table *domain.RateTable) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}
