package screener

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/evaluator"
	"github.com/wonny/orion/internal/indicators"
	"github.com/wonny/orion/internal/options"
	"github.com/wonny/orion/internal/strategy"
	"github.com/wonny/orion/pkg/logger"
)

// Defaults used when Config leaves a field at zero
const (
	DefaultMaxConcurrent = 5
	DefaultLookbackDays  = 300
)

// Symbol outcome labels passed to the Recorder
const (
	StatusMatched   = "matched"
	StatusUnmatched = "unmatched"
	StatusFailed    = "failed"
)

// Config controls fan-out width and history depth
type Config struct {
	MaxConcurrent int
	LookbackDays  int
}

// Recorder receives per-symbol and per-run observations (pkg/metrics implements it)
type Recorder interface {
	ObserveSymbol(status string, d time.Duration)
	ObserveRun(matches int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSymbol(string, time.Duration) {}
func (nopRecorder) ObserveRun(int, time.Duration)       {}

// Screener runs a strategy over a symbol list with bounded concurrency.
// One Screener can serve many runs; the strategy is shared read-only.
// ⭐ SSOT: 스크리닝 오케스트레이션은 여기서만
type Screener struct {
	strategy    *strategy.Strategy
	provider    contracts.Provider
	recommender *options.Recommender
	cfg         Config
	recorder    Recorder
	logger      *logger.Logger
	now         func() time.Time
}

// New creates a screener. Option recommendations are produced only when
// the strategy has an option_selection block.
func New(s *strategy.Strategy, provider contracts.Provider, cfg Config, log *logger.Logger) *Screener {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}

	var rec *options.Recommender
	if sel, ok := s.OptionSelection(); ok {
		rec = options.NewRecommender(sel)
	}

	return &Screener{
		strategy:    s,
		provider:    provider,
		recommender: rec,
		cfg:         cfg,
		recorder:    nopRecorder{},
		logger:      log,
		now:         time.Now,
	}
}

// WithRecorder sets the metrics recorder
func (s *Screener) WithRecorder(r Recorder) *Screener {
	if r != nil {
		s.recorder = r
	}
	return s
}

// ScreenAndFilter is a one-shot helper around New(...).ScreenAndFilter
func ScreenAndFilter(ctx context.Context, symbols []string, s *strategy.Strategy, provider contracts.Provider, maxConcurrent int, log *logger.Logger) ([]contracts.ScreeningResult, contracts.ScreeningStats, error) {
	return New(s, provider, Config{MaxConcurrent: maxConcurrent}, log).ScreenAndFilter(ctx, symbols)
}

// ScreenAndFilter screens every symbol and returns only the matches,
// in input order
func (s *Screener) ScreenAndFilter(ctx context.Context, symbols []string) ([]contracts.ScreeningResult, contracts.ScreeningStats, error) {
	results, stats, err := s.Screen(ctx, symbols)
	if err != nil {
		return nil, stats, err
	}

	matches := make([]contracts.ScreeningResult, 0, stats.Matches)
	for _, r := range results {
		if r.Matches {
			matches = append(matches, r)
		}
	}
	return matches, stats, nil
}

type job struct {
	index  int
	symbol string
}

type jobResult struct {
	index  int
	result contracts.ScreeningResult
}

// Screen returns one result per symbol in input order. Per-symbol failures
// are recorded on the result; only cancellation fails the run, and then
// nothing partial is returned.
func (s *Screener) Screen(ctx context.Context, symbols []string) ([]contracts.ScreeningResult, contracts.ScreeningStats, error) {
	symbols = NormalizeSymbols(symbols)
	runID := uuid.NewString()
	runLog := s.logger.WithField("run_id", runID)

	stats := contracts.ScreeningStats{
		RunID:        runID,
		TotalSymbols: len(symbols),
		StartTime:    s.now(),
	}

	workers := s.cfg.MaxConcurrent
	if workers > len(symbols) {
		workers = len(symbols)
	}

	runLog.WithFields(map[string]interface{}{
		"strategy": s.strategy.Name(),
		"symbols":  len(symbols),
		"workers":  workers,
	}).Info("Screening started")

	jobCh := make(chan job, len(symbols))
	resultCh := make(chan jobResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, runLog, jobCh, resultCh)
		}()
	}

	for i, sym := range symbols {
		jobCh <- job{index: i, symbol: sym}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// single aggregator: only this goroutine touches results and stats
	results := make([]contracts.ScreeningResult, len(symbols))
	for r := range resultCh {
		results[r.index] = r.result
		stats.Add(&results[r.index])
	}

	if err := ctx.Err(); err != nil {
		runLog.WithError(err).Warn("Screening cancelled, discarding partial results")
		return nil, contracts.ScreeningStats{}, fmt.Errorf("screening run %s cancelled: %w", runID, err)
	}

	stats.Finish(s.now())
	s.recorder.ObserveRun(stats.Matches, stats.EndTime.Sub(stats.StartTime))

	runLog.WithFields(map[string]interface{}{
		"total":      stats.TotalSymbols,
		"successful": stats.Successful,
		"failed":     stats.Failed,
		"matches":    stats.Matches,
		"duration":   stats.DurationSeconds,
	}).Info("Screening completed")

	return results, stats, nil
}

func (s *Screener) worker(ctx context.Context, runLog *logger.Logger, jobCh <-chan job, resultCh chan<- jobResult) {
	for j := range jobCh {
		select {
		case <-ctx.Done():
			resultCh <- jobResult{index: j.index, result: errorResult(j.symbol, s.now(), ctx.Err())}
			continue
		default:
		}

		start := time.Now()
		res := s.screenSymbol(ctx, runLog.WithField("symbol", j.symbol), j.symbol)
		s.recorder.ObserveSymbol(status(&res), time.Since(start))

		resultCh <- jobResult{index: j.index, result: res}
	}
}

// screenSymbol runs the isolated per-symbol pipeline. It never returns an
// error; failures (including panics) become an error result.
func (s *Screener) screenSymbol(ctx context.Context, log *logger.Logger, symbol string) (res contracts.ScreeningResult) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Symbol pipeline panicked")
			res = errorResult(symbol, s.now(), fmt.Errorf("panic: %v", r))
		}
	}()

	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		log.WithError(err).Warn("Quote fetch failed")
		return errorResult(symbol, s.now(), contracts.NewProviderError(s.provider.Name(), contracts.OpQuote, symbol, err))
	}

	bars, err := s.provider.GetHistorical(ctx, symbol, s.cfg.LookbackDays)
	if err != nil {
		log.WithError(err).Warn("History fetch failed")
		return errorResult(symbol, s.now(), contracts.NewProviderError(s.provider.Name(), contracts.OpHistorical, symbol, err))
	}

	snap := evaluator.Snapshot{
		Quote:      quote,
		Indicators: indicators.Compute(symbol, bars),
	}
	if len(bars) > 1 {
		snap.Previous = indicators.Compute(symbol, bars[:len(bars)-1])
		prev := bars[len(bars)-2].Close
		snap.PreviousPrice = &prev
	}

	eval := evaluator.Evaluate(s.strategy, snap)
	res = contracts.ScreeningResult{
		Symbol:           symbol,
		Timestamp:        s.now(),
		Matches:          eval.Matches,
		SignalStrength:   eval.SignalStrength,
		ConditionsMet:    eval.Met,
		ConditionsMissed: eval.Missed,
		Quote:            quote,
		Indicators:       snap.Indicators,
	}

	log.WithFields(map[string]interface{}{
		"bars":            len(bars),
		"matches":         eval.Matches,
		"signal_strength": eval.SignalStrength,
	}).Debug("Symbol evaluated")

	if eval.Matches && s.recommender != nil {
		res.OptionRecommendation = s.recommend(ctx, log, quote, symbol)
	}

	return res
}

// recommend fetches the chain for a matched symbol. A chain failure keeps
// the match and only drops the recommendation.
func (s *Screener) recommend(ctx context.Context, log *logger.Logger, quote *contracts.Quote, symbol string) *contracts.OptionRecommendation {
	chain, err := s.provider.GetOptionChain(ctx, symbol)
	if err != nil {
		log.WithError(err).Warn("Option chain fetch failed, match kept without recommendation")
		return nil
	}

	rec, diag := s.recommender.Recommend(quote, chain, s.now())
	if rec == nil {
		log.WithField("diagnostics", diag.String()).Info("No option contract passed selection")
		return nil
	}

	log.WithFields(map[string]interface{}{
		"contract":      rec.Symbol,
		"premium_yield": rec.PremiumYield,
		"dte":           rec.DaysToExpiration,
	}).Debug("Option recommended")
	return rec
}

func errorResult(symbol string, ts time.Time, err error) contracts.ScreeningResult {
	return contracts.ScreeningResult{
		Symbol:           symbol,
		Timestamp:        ts,
		ConditionsMet:    []string{},
		ConditionsMissed: []string{},
		Error:            err.Error(),
	}
}

func status(r *contracts.ScreeningResult) string {
	switch {
	case r.Failed():
		return StatusFailed
	case r.Matches:
		return StatusMatched
	default:
		return StatusUnmatched
	}
}

// NormalizeSymbols upper-cases and trims symbols and drops blanks.
// Duplicates are kept; each one is screened.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
