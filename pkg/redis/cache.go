package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores provider responses as JSON under a key prefix
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Default TTLs for provider data
const (
	TTLQuote       = 5 * time.Minute  // 시세
	TTLOptionChain = 15 * time.Minute // 옵션 체인
	TTLHistorical  = 24 * time.Hour   // 일봉
)

// QuoteKey is the cache key for a symbol quote
func QuoteKey(provider, symbol string) string {
	return fmt.Sprintf("quote:%s:%s", provider, strings.ToUpper(symbol))
}

// HistoricalKey is the cache key for a daily bar series
func HistoricalKey(provider, symbol string, lookbackDays int) string {
	return fmt.Sprintf("historical:%s:%s:%d", provider, strings.ToUpper(symbol), lookbackDays)
}

// OptionChainKey is the cache key for a full option chain
func OptionChainKey(provider, symbol string) string {
	return fmt.Sprintf("options:%s:%s", provider, strings.ToUpper(symbol))
}
