package screener

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/strategy"
	"github.com/wonny/orion/pkg/logger"
)

var now = time.Date(2024, 1, 17, 15, 0, 0, 0, time.UTC)

const trendStrategy = `
name: uptrend_puts
combination: ALL
conditions:
  - kind: price_vs_sma
    period: 50
    operator: gt
option_selection:
  option_type: put
  min_dte: 21
  max_dte: 45
`

// fakeProvider serves synthetic up/down trends with random latency
type fakeProvider struct {
	up        map[string]bool
	failQuote map[string]bool
	failChain map[string]bool
	panics    map[string]bool

	mu       sync.Mutex
	inFlight int
	maxSeen  int
	chains   int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		up:        map[string]bool{},
		failQuote: map[string]bool{},
		failChain: map[string]bool{},
		panics:    map[string]bool{},
	}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) enter() func() {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	p.mu.Unlock()

	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	return func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}
}

func (p *fakeProvider) close(symbol string, i int) float64 {
	if p.up[symbol] {
		return 100 + float64(i)*0.5
	}
	return 250 - float64(i)*0.5
}

func (p *fakeProvider) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	defer p.enter()()
	if p.panics[symbol] {
		panic("corrupt payload for " + symbol)
	}
	if p.failQuote[symbol] {
		return nil, errors.New("connection reset")
	}
	return &contracts.Quote{Symbol: symbol, Price: p.close(symbol, 299), Volume: 1_000_000, Timestamp: now}, nil
}

func (p *fakeProvider) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	defer p.enter()()
	bars := make([]contracts.Bar, lookbackDays)
	for i := range bars {
		c := p.close(symbol, i)
		bars[i] = contracts.Bar{
			Date:   now.AddDate(0, 0, i-lookbackDays+1),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars, nil
}

func (p *fakeProvider) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	defer p.enter()()
	atomic.AddInt32(&p.chains, 1)
	if p.failChain[symbol] {
		return nil, errors.New("chain unavailable")
	}
	strike := decimal.NewFromFloat(p.close(symbol, 299) * 0.95).Round(0)
	return []contracts.OptionContract{{
		Symbol:           symbol + "240216P",
		UnderlyingSymbol: symbol,
		Strike:           strike,
		Expiration:       now.AddDate(0, 0, 30),
		Type:             contracts.OptionPut,
		Bid:              decimal.RequireFromString("1.50"),
		Ask:              decimal.RequireFromString("1.60"),
		Volume:           100,
		OpenInterest:     1000,
	}}, nil
}

func newTestScreener(t *testing.T, p contracts.Provider, maxConcurrent int) *Screener {
	t.Helper()
	s, err := strategy.Parse([]byte(trendStrategy))
	require.NoError(t, err)

	sc := New(s, p, Config{MaxConcurrent: maxConcurrent}, logger.Nop())
	sc.now = func() time.Time { return now }
	return sc
}

func symbolsN(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("SYM%02d", i)
	}
	return out
}

func TestScreenAndFilter_OrderIndependentOfConcurrency(t *testing.T) {
	p := newFakeProvider()
	symbols := symbolsN(30)
	for i, sym := range symbols {
		p.up[sym] = i%3 != 0
	}

	serial, serialStats, err := newTestScreener(t, p, 1).ScreenAndFilter(context.Background(), symbols)
	require.NoError(t, err)
	parallel, parallelStats, err := newTestScreener(t, p, 10).ScreenAndFilter(context.Background(), symbols)
	require.NoError(t, err)

	require.Len(t, serial, 20)
	assert.Equal(t, serial, parallel)
	assert.Equal(t, serialStats.Matches, parallelStats.Matches)
	assert.Equal(t, serialStats.Successful, parallelStats.Successful)

	// matches keep input order
	for i := 1; i < len(serial); i++ {
		assert.Less(t, serial[i-1].Symbol, serial[i].Symbol)
	}
}

func TestScreenAndFilterFunc(t *testing.T) {
	strat, err := strategy.Parse([]byte(trendStrategy))
	require.NoError(t, err)

	symbols := symbolsN(24)
	up := newFakeProvider()
	for i, sym := range symbols {
		up.up[sym] = i%4 != 1
	}

	matchedSymbols := func(maxConcurrent int) ([]string, contracts.ScreeningStats, int) {
		p := newFakeProvider()
		p.up = up.up
		matches, stats, err := ScreenAndFilter(context.Background(), symbols, strat, p, maxConcurrent, logger.Nop())
		require.NoError(t, err)

		out := make([]string, 0, len(matches))
		for _, m := range matches {
			assert.True(t, m.Matches)
			out = append(out, m.Symbol)
		}
		return out, stats, p.maxSeen
	}

	serial, serialStats, serialMax := matchedSymbols(1)
	parallel, parallelStats, parallelMax := matchedSymbols(10)

	require.Len(t, serial, 18)
	assert.Equal(t, serial, parallel)
	assert.Equal(t, 1, serialMax)
	assert.LessOrEqual(t, parallelMax, 10)
	for _, stats := range []contracts.ScreeningStats{serialStats, parallelStats} {
		assert.Equal(t, 24, stats.TotalSymbols)
		assert.Equal(t, 18, stats.Matches)
		assert.NotEmpty(t, stats.RunID)
	}
}

func TestScreen_BoundedConcurrency(t *testing.T) {
	p := newFakeProvider()
	_, _, err := newTestScreener(t, p, 3).Screen(context.Background(), symbolsN(25))
	require.NoError(t, err)

	assert.LessOrEqual(t, p.maxSeen, 3)
	assert.Positive(t, p.maxSeen)
}

func TestScreen_FailureIsIsolated(t *testing.T) {
	p := newFakeProvider()
	p.up["AAPL"], p.up["MSFT"], p.up["NVDA"] = true, true, true
	p.failQuote["MSFT"] = true
	p.panics["TSLA"] = true

	results, stats, err := newTestScreener(t, p, 4).Screen(context.Background(), []string{"AAPL", "MSFT", "NVDA", "TSLA"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Matches)
	assert.True(t, results[2].Matches)

	assert.False(t, results[1].Matches)
	assert.Contains(t, results[1].Error, "connection reset")
	assert.Contains(t, results[1].Error, "fake quote MSFT")
	assert.Nil(t, results[1].Quote)

	assert.Contains(t, results[3].Error, "panic")

	assert.Equal(t, 4, stats.TotalSymbols)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 2, stats.Matches)
}

func TestScreen_AllFailStillReturnsStats(t *testing.T) {
	p := newFakeProvider()
	symbols := symbolsN(5)
	for _, sym := range symbols {
		p.failQuote[sym] = true
	}

	results, stats, err := newTestScreener(t, p, 2).Screen(context.Background(), symbols)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, 0, stats.Successful)
	assert.Equal(t, 5, stats.Failed)
	assert.Equal(t, 0, stats.Matches)
	assert.NotEmpty(t, stats.RunID)
}

func TestScreen_StatsInvariants(t *testing.T) {
	p := newFakeProvider()
	symbols := symbolsN(40)
	for i, sym := range symbols {
		p.up[sym] = i%2 == 0
		p.failQuote[sym] = i%7 == 0
	}

	results, stats, err := newTestScreener(t, p, 8).Screen(context.Background(), symbols)
	require.NoError(t, err)

	assert.Equal(t, len(symbols), stats.TotalSymbols)
	assert.Equal(t, stats.TotalSymbols, stats.Successful+stats.Failed)
	assert.LessOrEqual(t, stats.Matches, stats.Successful)
	assert.GreaterOrEqual(t, stats.DurationSeconds, 0.0)

	for i, r := range results {
		assert.Equal(t, symbols[i], r.Symbol)
		evaluated := len(r.ConditionsMet) + len(r.ConditionsMissed)
		if r.Failed() {
			assert.Zero(t, evaluated)
			assert.False(t, r.Matches)
		} else {
			assert.Equal(t, 1, evaluated)
		}
		assert.GreaterOrEqual(t, r.SignalStrength, 0.0)
		assert.LessOrEqual(t, r.SignalStrength, 1.0)
	}
}

func TestScreen_OptionRecommendation(t *testing.T) {
	p := newFakeProvider()
	p.up["AAPL"], p.up["AMZN"] = true, true
	p.failChain["AMZN"] = true

	results, stats, err := newTestScreener(t, p, 2).Screen(context.Background(), []string{"AAPL", "AMZN", "WMT"})
	require.NoError(t, err)

	require.NotNil(t, results[0].OptionRecommendation)
	assert.Equal(t, "AAPL240216P", results[0].OptionRecommendation.Symbol)
	assert.Equal(t, 30, results[0].OptionRecommendation.DaysToExpiration)

	// chain failure keeps the match
	assert.True(t, results[1].Matches)
	assert.Nil(t, results[1].OptionRecommendation)
	assert.Empty(t, results[1].Error)

	// unmatched symbols never fetch a chain
	assert.False(t, results[2].Matches)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.chains))
	assert.Equal(t, 2, stats.Matches)
}

type blockingProvider struct{ fakeProvider }

func (p *blockingProvider) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScreen_CancellationDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, stats, err := newTestScreener(t, &blockingProvider{}, 4).Screen(ctx, symbolsN(10))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, results)
	assert.Equal(t, contracts.ScreeningStats{}, stats)
}

func TestScreen_EmptyInput(t *testing.T) {
	results, stats, err := newTestScreener(t, newFakeProvider(), 4).Screen(context.Background(), []string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.TotalSymbols)
}

type countingRecorder struct {
	mu      sync.Mutex
	symbols map[string]int
	runs    int
	matches int
}

func (r *countingRecorder) ObserveSymbol(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols[status]++
}

func (r *countingRecorder) ObserveRun(matches int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	r.matches += matches
}

func TestScreen_Recorder(t *testing.T) {
	p := newFakeProvider()
	p.up["AAPL"] = true
	p.failQuote["MSFT"] = true

	rec := &countingRecorder{symbols: map[string]int{}}
	_, _, err := newTestScreener(t, p, 2).WithRecorder(rec).Screen(context.Background(), []string{"AAPL", "MSFT", "WMT"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{StatusMatched: 1, StatusFailed: 1, StatusUnmatched: 1}, rec.symbols)
	assert.Equal(t, 1, rec.runs)
	assert.Equal(t, 1, rec.matches)
}

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" aapl", "MSFT ", "", "  ", "aapl", "brk.b"})
	assert.Equal(t, []string{"AAPL", "MSFT", "AAPL", "BRK.B"}, got)
}
