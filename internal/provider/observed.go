package provider

import (
	"context"
	"time"

	"github.com/wonny/orion/internal/contracts"
)

// FetchObserver records provider call latency (pkg/metrics implements it)
type FetchObserver interface {
	ObserveFetch(provider, operation string, d time.Duration, err error)
}

// Observed reports every call of the wrapped provider to a FetchObserver
type Observed struct {
	next     contracts.Provider
	observer FetchObserver
}

var _ contracts.Provider = (*Observed)(nil)

// NewObserved wraps next
func NewObserved(next contracts.Provider, observer FetchObserver) *Observed {
	return &Observed{next: next, observer: observer}
}

// Name implements contracts.Provider
func (o *Observed) Name() string {
	return o.next.Name()
}

// GetQuote implements contracts.Provider
func (o *Observed) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	start := time.Now()
	q, err := o.next.GetQuote(ctx, symbol)
	o.observer.ObserveFetch(o.next.Name(), contracts.OpQuote, time.Since(start), err)
	return q, err
}

// GetHistorical implements contracts.Provider
func (o *Observed) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	start := time.Now()
	bars, err := o.next.GetHistorical(ctx, symbol, lookbackDays)
	o.observer.ObserveFetch(o.next.Name(), contracts.OpHistorical, time.Since(start), err)
	return bars, err
}

// GetOptionChain implements contracts.Provider
func (o *Observed) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	start := time.Now()
	chain, err := o.next.GetOptionChain(ctx, symbol)
	o.observer.ObserveFetch(o.next.Name(), contracts.OpOptionChain, time.Since(start), err)
	return chain, err
}
