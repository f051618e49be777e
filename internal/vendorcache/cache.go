// Package vendorcache keeps hot vendor profiles in Redis so the approval
// gate on every listing operation does not hit Postgres each time.
package vendorcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// Store is the key-value surface the cache needs. Both the plain Redis
// client and its metrics-instrumented wrapper satisfy it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache provides Redis-backed caching for vendor profiles keyed by the
// owning Telegram account.
type Cache struct {
	store Store
}

// NewCache constructs a vendor cache backed by the provided store.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Get fetches a cached vendor profile if it exists.
func (c *Cache) Get(ctx context.Context, telegramID int64) (*domain.Vendor, error) {
	if c == nil || c.store == nil {
		return nil, nil
	}

	data, err := c.store.Get(ctx, cacheKey(telegramID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached vendor: %w", err)
	}

	var vendor domain.Vendor
	if err := json.Unmarshal([]byte(data), &vendor); err != nil {
		return nil, fmt.Errorf("decode cached vendor: %w", err)
	}

	return &vendor, nil
}

// Set stores the vendor profile in cache for the provided TTL.
func (c *Cache) Set(ctx context.Context, telegramID int64, vendor *domain.Vendor, ttl time.Duration) error {
	if c == nil || c.store == nil || vendor == nil {
		return nil
	}

	payload, err := json.Marshal(vendor)
	if err != nil {
		return fmt.Errorf("encode vendor for cache: %w", err)
	}

	if err := c.store.Set(ctx, cacheKey(telegramID), payload, ttl); err != nil {
		return fmt.Errorf("set cached vendor: %w", err)
	}

	return nil
}

// Invalidate removes the cached profile entry if it exists. Approval
// decisions must call this so a vendor does not stay gated after approval.
func (c *Cache) Invalidate(ctx context.Context, telegramID int64) error {
	if c == nil || c.store == nil {
		return nil
	}

	if err := c.store.Delete(ctx, cacheKey(telegramID)); err != nil {
		return fmt.Errorf("delete cached vendor: %w", err)
	}

	return nil
}

func cacheKey(telegramID int64) string {
	return fmt.Sprintf("vendor:%d", telegramID)
}
