package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/screener"
	"github.com/wonny/orion/internal/storage"
	"github.com/wonny/orion/internal/strategy"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/logger"
)

// SymbolSource resolves the symbols for a run (universe.Resolver)
type SymbolSource interface {
	Resolve(ctx context.Context, explicit []string, cfg config.ScreeningConfig) ([]string, error)
}

// Notifier delivers match alerts (notification.Service)
type Notifier interface {
	Notify(ctx context.Context, matches []contracts.ScreeningResult) int
}

// ScreeningDeps are the collaborators of a ScreeningJob
type ScreeningDeps struct {
	Provider contracts.Provider
	Symbols  SymbolSource
	Repo     contracts.ResultRepository
	Notifier Notifier          // nil disables alerts
	Recorder screener.Recorder // nil disables metrics
}

// ScreeningJob screens the configured universe, stores the run and alerts on matches
// ⭐ SSOT: 정기 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	cfg      config.ScreeningConfig
	schedule string
	deps     ScreeningDeps
	logger   *logger.Logger

	// strategy file is re-read every run so edits apply without a restart
	loadStrategy func() (*strategy.Strategy, error)
}

// NewScreeningJob creates a screening job from config
func NewScreeningJob(cfg *config.Config, deps ScreeningDeps, log *logger.Logger) *ScreeningJob {
	path := cfg.Screening.StrategyPath
	return &ScreeningJob{
		cfg:      cfg.Screening,
		schedule: cfg.Scheduler.Schedule,
		deps:     deps,
		logger:   log.WithField("job", "screening"),
		loadStrategy: func() (*strategy.Strategy, error) {
			return strategy.ParseFile(path)
		},
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "screening"
}

// Schedule returns the configured cron schedule
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run executes one screening run
func (j *ScreeningJob) Run(ctx context.Context) error {
	strat, err := j.loadStrategy()
	if err != nil {
		return fmt.Errorf("load strategy: %w", err)
	}

	symbols, err := j.deps.Symbols.Resolve(ctx, nil, j.cfg)
	if err != nil {
		return fmt.Errorf("resolve symbols: %w", err)
	}

	s := screener.New(strat, j.deps.Provider, screener.Config{
		MaxConcurrent: j.cfg.MaxConcurrent,
		LookbackDays:  j.cfg.LookbackDays,
	}, j.logger).WithRecorder(j.deps.Recorder)

	results, stats, err := s.Screen(ctx, symbols)
	if err != nil {
		return err
	}

	runID, err := storage.SaveRun(ctx, j.deps.Repo, stats, strat.Name(), results)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	matches := make([]contracts.ScreeningResult, 0, stats.Matches)
	for _, r := range results {
		if r.Matches {
			matches = append(matches, r)
		}
	}

	delivered := 0
	if j.deps.Notifier != nil && len(matches) > 0 {
		delivered = j.deps.Notifier.Notify(ctx, matches)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"strategy":  strat.Name(),
		"symbols":   stats.TotalSymbols,
		"matches":   stats.Matches,
		"failed":    stats.Failed,
		"delivered": delivered,
	}).Info("Scheduled screening completed")

	// a run where every symbol failed is worth a retry
	if stats.TotalSymbols > 0 && stats.Failed == stats.TotalSymbols {
		return fmt.Errorf("all %d symbols failed", stats.TotalSymbols)
	}
	return nil
}
