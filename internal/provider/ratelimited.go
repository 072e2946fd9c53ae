package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/orion/internal/contracts"
)

// RateLimited spaces calls to the wrapped provider to n per minute within
// this process. Limits shared across processes live on the HTTP client
// (pkg/redis RateLimiter).
type RateLimited struct {
	next    contracts.Provider
	limiter *rate.Limiter
}

var _ contracts.Provider = (*RateLimited)(nil)

// NewRateLimited allows perMinute calls per minute with a burst of one.
// perMinute <= 0 disables limiting.
func NewRateLimited(next contracts.Provider, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Name implements contracts.Provider
func (r *RateLimited) Name() string {
	return r.next.Name()
}

func (r *RateLimited) wait(ctx context.Context, op, symbol string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return contracts.NewProviderError(r.next.Name(), op, symbol, err)
	}
	return nil
}

// GetQuote implements contracts.Provider
func (r *RateLimited) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if err := r.wait(ctx, contracts.OpQuote, symbol); err != nil {
		return nil, err
	}
	return r.next.GetQuote(ctx, symbol)
}

// GetHistorical implements contracts.Provider
func (r *RateLimited) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	if err := r.wait(ctx, contracts.OpHistorical, symbol); err != nil {
		return nil, err
	}
	return r.next.GetHistorical(ctx, symbol, lookbackDays)
}

// GetOptionChain implements contracts.Provider
func (r *RateLimited) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	if err := r.wait(ctx, contracts.OpOptionChain, symbol); err != nil {
		return nil, err
	}
	return r.next.GetOptionChain(ctx, symbol)
}
