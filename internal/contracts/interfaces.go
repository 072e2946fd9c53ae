package contracts

import (
	"context"
	"errors"
	"fmt"
)

// Provider supplies market data for the screener
// ⭐ SSOT: 시세/일봉/옵션체인 조회 인터페이스
type Provider interface {
	Name() string
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	// GetHistorical returns daily bars covering lookbackDays, oldest first
	GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]Bar, error)
	GetOptionChain(ctx context.Context, symbol string) ([]OptionContract, error)
}

// Provider operations
const (
	OpQuote       = "quote"
	OpHistorical  = "historical"
	OpOptionChain = "option_chain"
)

// ErrNotSupported is returned when a provider lacks an operation
var ErrNotSupported = errors.New("operation not supported by provider")

// ErrNoData is returned when a provider answers without usable data
var ErrNoData = errors.New("no data returned")

// ProviderError is a per-symbol fetch failure
type ProviderError struct {
	Provider  string
	Operation string
	Symbol    string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Operation, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err unless it already is a ProviderError
func NewProviderError(provider, op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Operation: op, Symbol: symbol, Err: err}
}
