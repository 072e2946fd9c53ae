package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/storage"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/logger"
)

const trendStrategy = `
name: above_sma
combination: ALL
conditions:
  - kind: price_vs_sma
    period: 50
    operator: gt
`

// trendProvider rises for symbols in up and falls for the rest
type trendProvider struct {
	up   map[string]bool
	fail map[string]bool
}

func (p *trendProvider) Name() string { return "fake" }

func (p *trendProvider) close(symbol string, i int) float64 {
	if p.up[symbol] {
		return 100 + float64(i)*0.5
	}
	return 250 - float64(i)*0.5
}

func (p *trendProvider) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if p.fail[symbol] {
		return nil, errors.New("connection reset")
	}
	return &contracts.Quote{Symbol: symbol, Price: p.close(symbol, 99), Volume: 1_000_000, Timestamp: time.Now()}, nil
}

func (p *trendProvider) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	bars := make([]contracts.Bar, 100)
	start := time.Now().AddDate(0, 0, -len(bars))
	for i := range bars {
		c := p.close(symbol, i)
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1_000_000}
	}
	return bars, nil
}

func (p *trendProvider) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	return nil, contracts.ErrNotSupported
}

type staticSymbols []string

func (s staticSymbols) Resolve(ctx context.Context, explicit []string, cfg config.ScreeningConfig) ([]string, error) {
	return s, nil
}

type recordingNotifier struct {
	calls   int
	matches []contracts.ScreeningResult
}

func (n *recordingNotifier) Notify(ctx context.Context, matches []contracts.ScreeningResult) int {
	n.calls++
	n.matches = matches
	return 1
}

func setup(t *testing.T, strategyDoc string) (*config.Config, contracts.ResultRepository) {
	t.Helper()
	dir := t.TempDir()

	path := filepath.Join(dir, "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strategyDoc), 0o644))

	repo, err := storage.OpenSQLite(context.Background(), filepath.Join(dir, "orion.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		Screening: config.ScreeningConfig{StrategyPath: path, MaxConcurrent: 2, LookbackDays: 100},
		Scheduler: config.SchedulerConfig{Schedule: "0 45 9 * * MON-FRI"},
	}
	return cfg, repo
}

func TestScreeningJob_Run(t *testing.T) {
	cfg, repo := setup(t, trendStrategy)
	notifier := &recordingNotifier{}

	job := NewScreeningJob(cfg, ScreeningDeps{
		Provider: &trendProvider{up: map[string]bool{"AAPL": true, "NVDA": true}, fail: map[string]bool{"TSLA": true}},
		Symbols:  staticSymbols{"AAPL", "MSFT", "NVDA", "TSLA"},
		Repo:     repo,
		Notifier: notifier,
	}, logger.Nop())

	assert.Equal(t, "screening", job.Name())
	assert.Equal(t, "0 45 9 * * MON-FRI", job.Schedule())

	require.NoError(t, job.Run(context.Background()))

	runs, err := repo.GetRecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "above_sma", runs[0].StrategyName)
	assert.Equal(t, 4, runs[0].SymbolsCount)
	assert.Equal(t, 2, runs[0].MatchesCount)

	stats, err := repo.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalResults)

	assert.Equal(t, 1, notifier.calls)
	require.Len(t, notifier.matches, 2)
	assert.Equal(t, "AAPL", notifier.matches[0].Symbol)
	assert.Equal(t, "NVDA", notifier.matches[1].Symbol)
}

func TestScreeningJob_NoMatchesSkipsNotify(t *testing.T) {
	cfg, repo := setup(t, trendStrategy)
	notifier := &recordingNotifier{}

	job := NewScreeningJob(cfg, ScreeningDeps{
		Provider: &trendProvider{},
		Symbols:  staticSymbols{"MSFT"},
		Repo:     repo,
		Notifier: notifier,
	}, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, notifier.calls)
}

func TestScreeningJob_Errors(t *testing.T) {
	t.Run("invalid strategy", func(t *testing.T) {
		cfg, repo := setup(t, "name: broken\ncombination: SOMETIMES\nconditions: []\n")
		job := NewScreeningJob(cfg, ScreeningDeps{Provider: &trendProvider{}, Symbols: staticSymbols{"AAPL"}, Repo: repo}, logger.Nop())

		err := job.Run(context.Background())
		assert.ErrorContains(t, err, "load strategy")
	})

	t.Run("every symbol failed", func(t *testing.T) {
		cfg, repo := setup(t, trendStrategy)
		job := NewScreeningJob(cfg, ScreeningDeps{
			Provider: &trendProvider{fail: map[string]bool{"AAPL": true, "MSFT": true}},
			Symbols:  staticSymbols{"AAPL", "MSFT"},
			Repo:     repo,
		}, logger.Nop())

		err := job.Run(context.Background())
		assert.ErrorContains(t, err, "all 2 symbols failed")

		// the failed run is still stored
		runs, err := repo.GetRecentRuns(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg, repo := setup(t, trendStrategy)
		job := NewScreeningJob(cfg, ScreeningDeps{Provider: &trendProvider{}, Symbols: staticSymbols{"AAPL"}, Repo: repo}, logger.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, job.Run(ctx), context.Canceled)

		runs, err := repo.GetRecentRuns(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}
