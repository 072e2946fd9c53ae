package provider

import (
	"fmt"
	"strings"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/external/alphavantage"
	"github.com/wonny/orion/internal/external/yahoo"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
	"github.com/wonny/orion/pkg/redis"
)

// cachePrefix namespaces provider keys in Redis
const cachePrefix = "orion"

// Deps are the shared clients a provider stack is built from.
// Redis and Metrics may be nil.
type Deps struct {
	Redis   *redis.Client
	Metrics FetchObserver
	Logger  *logger.Logger
}

// New builds the configured provider:
// client -> rate limit -> cache (Redis enabled) -> metrics (when set).
// ⭐ SSOT: Provider 조립은 여기서만
func New(cfg *config.Config, deps Deps) (contracts.Provider, error) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	if name == "" {
		name = yahoo.ProviderName
	}

	httpClient := httputil.New(cfg, log)
	if deps.Redis != nil && deps.Redis.Enabled() && cfg.Provider.RateLimit > 0 {
		limiter := redis.NewRateLimiter(deps.Redis, cachePrefix)
		httpClient.WithRateLimiter(limiter, redis.PerMinute(name, cfg.Provider.RateLimit))
	}

	var base contracts.Provider
	switch name {
	case yahoo.ProviderName:
		base = yahoo.NewClient(httpClient, log)
	case alphavantage.ProviderName, "alphavantage":
		av, err := alphavantage.NewClient(httpClient, cfg.Provider.APIKey, log)
		if err != nil {
			return nil, fmt.Errorf("create provider %s: %w", name, err)
		}
		base = av
	default:
		return nil, fmt.Errorf("unknown data provider %q (want %s or %s)", cfg.Provider.Name, yahoo.ProviderName, alphavantage.ProviderName)
	}

	var p contracts.Provider = NewRateLimited(base, cfg.Provider.RateLimit)

	if deps.Redis != nil && deps.Redis.Enabled() {
		cache := redis.NewCache(deps.Redis, cachePrefix)
		p = NewCached(p, cache, TTLs{
			Quote:       cfg.Cache.QuoteTTL,
			OptionChain: cfg.Cache.OptionChainTTL,
			Historical:  cfg.Cache.HistoricalTTL,
		}, log)
	}

	if deps.Metrics != nil {
		p = NewObserved(p, deps.Metrics)
	}

	log.WithFields(map[string]interface{}{
		"provider":   p.Name(),
		"rate_limit": cfg.Provider.RateLimit,
		"cache":      deps.Redis != nil && deps.Redis.Enabled(),
	}).Debug("Data provider ready")

	return p, nil
}
