package provider

import (
	"context"
	"time"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/logger"
	"github.com/wonny/orion/pkg/redis"
)

// Cache is the subset of pkg/redis.Cache the decorator needs
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TTLs per provider operation
type TTLs struct {
	Quote       time.Duration
	OptionChain time.Duration
	Historical  time.Duration
}

// DefaultTTLs matches the pkg/redis defaults
func DefaultTTLs() TTLs {
	return TTLs{
		Quote:       redis.TTLQuote,
		OptionChain: redis.TTLOptionChain,
		Historical:  redis.TTLHistorical,
	}
}

// Cached serves provider calls from a TTL cache. Cache failures are
// logged and fall through to the wrapped provider.
type Cached struct {
	next   contracts.Provider
	cache  Cache
	ttl    TTLs
	logger *logger.Logger
}

var _ contracts.Provider = (*Cached)(nil)

// NewCached wraps next with a response cache. Zero TTLs take the defaults.
func NewCached(next contracts.Provider, cache Cache, ttl TTLs, log *logger.Logger) *Cached {
	def := DefaultTTLs()
	if ttl.Quote <= 0 {
		ttl.Quote = def.Quote
	}
	if ttl.OptionChain <= 0 {
		ttl.OptionChain = def.OptionChain
	}
	if ttl.Historical <= 0 {
		ttl.Historical = def.Historical
	}

	return &Cached{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// Name implements contracts.Provider
func (c *Cached) Name() string {
	return c.next.Name()
}

// GetQuote implements contracts.Provider
func (c *Cached) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	key := redis.QuoteKey(c.next.Name(), symbol)

	var q contracts.Quote
	if c.lookup(ctx, key, &q) {
		return &q, nil
	}

	fresh, err := c.next.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh, c.ttl.Quote)
	return fresh, nil
}

// GetHistorical implements contracts.Provider
func (c *Cached) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	key := redis.HistoricalKey(c.next.Name(), symbol, lookbackDays)

	var bars []contracts.Bar
	if c.lookup(ctx, key, &bars) {
		return bars, nil
	}

	fresh, err := c.next.GetHistorical(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh, c.ttl.Historical)
	return fresh, nil
}

// GetOptionChain implements contracts.Provider
func (c *Cached) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	key := redis.OptionChainKey(c.next.Name(), symbol)

	var chain []contracts.OptionContract
	if c.lookup(ctx, key, &chain) {
		return chain, nil
	}

	fresh, err := c.next.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh, c.ttl.OptionChain)
	return fresh, nil
}

func (c *Cached) lookup(ctx context.Context, key string, dest interface{}) bool {
	hit, err := c.cache.Get(ctx, key, dest)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	if hit {
		c.logger.WithField("key", key).Debug("Cache hit")
	}
	return hit
}

func (c *Cached) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
