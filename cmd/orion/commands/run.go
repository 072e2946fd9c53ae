package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/screener"
	"github.com/wonny/orion/internal/storage"
	"github.com/wonny/orion/internal/strategy"
)

var (
	runStrategy    string
	runSymbols     string
	runNotify      bool
	runDryRun      bool
	runOutput      string
	runProvider    string
	runConcurrency int
)

// runCmd performs a single screening run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen symbols against a strategy",
	Long: `Screen a symbol list against a strategy and print the matches.

Symbols come from --symbols, otherwise from SCREENING_CUSTOM_SYMBOLS,
otherwise from the configured universe (sp500).

Examples:
  orion run
  orion run --symbols AAPL,MSFT,NVDA --output table
  orion run --strategy strategies/ofi.yaml --notify
  orion run --dry-run --output json`,
	RunE: runScreening,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "", "strategy YAML file (default: SCREENING_STRATEGY_PATH)")
	runCmd.Flags().StringVar(&runSymbols, "symbols", "", "comma-separated symbols to screen")
	runCmd.Flags().BoolVar(&runNotify, "notify", false, "send alerts for matches")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "do not store results")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", OutputPretty, "output format (table|pretty|json)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "data provider override (yahoo|alpha_vantage)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "concurrent symbols (default: SCREENING_MAX_CONCURRENT)")
}

func runScreening(cmd *cobra.Command, args []string) error {
	if err := validOutput(runOutput, OutputTable, OutputPretty, OutputJSON); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if runProvider != "" {
		a.cfg.Provider.Name = runProvider
	}
	if runConcurrency > 0 {
		a.cfg.Screening.MaxConcurrent = runConcurrency
	}
	if runStrategy == "" {
		runStrategy = a.cfg.Screening.StrategyPath
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	strat, err := strategy.ParseFile(runStrategy)
	if err != nil {
		return err
	}

	p, err := a.provider()
	if err != nil {
		return err
	}

	symbols, err := a.resolver().Resolve(ctx, splitSymbols(runSymbols), a.cfg.Screening)
	if err != nil {
		return fmt.Errorf("resolve symbols: %w", err)
	}

	out := cmd.OutOrStdout()
	if runOutput != OutputJSON {
		fmt.Fprintf(out, "Strategy: %s\n", strat.Name())
		fmt.Fprintf(out, "Screening %d symbols with %s...\n", len(symbols), p.Name())
	}

	s := screener.New(strat, p, screener.Config{
		MaxConcurrent: a.cfg.Screening.MaxConcurrent,
		LookbackDays:  a.cfg.Screening.LookbackDays,
	}, a.log).WithRecorder(a.metrics)

	results, stats, err := s.Screen(ctx, symbols)
	if err != nil {
		return fmt.Errorf("screening cancelled: %w", err)
	}

	matches := make([]contracts.ScreeningResult, 0, stats.Matches)
	for _, r := range results {
		if r.Matches {
			matches = append(matches, r)
		}
	}

	if runOutput != OutputJSON {
		printStats(out, stats)
		if len(matches) == 0 {
			fmt.Fprintln(out, "No symbols matched the strategy.")
		}
	}
	if len(matches) > 0 || runOutput == OutputJSON {
		if err := printMatches(out, runOutput, matches); err != nil {
			return err
		}
	}

	if !runDryRun {
		if err := saveResults(ctx, a, stats, strat, results); err != nil {
			return err
		}
	}

	if runNotify && len(matches) > 0 {
		notifyMatches(ctx, a, matches)
	}
	return nil
}

func saveResults(ctx context.Context, a *app, stats contracts.ScreeningStats, strat *strategy.Strategy, results []contracts.ScreeningResult) error {
	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	runID, err := storage.SaveRun(ctx, repo, stats, strat.Name(), results)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	a.log.WithField("run_id", runID).Info("Results saved")
	return nil
}

func notifyMatches(ctx context.Context, a *app, matches []contracts.ScreeningResult) {
	svc, err := a.notifier()
	if err != nil {
		a.log.WithError(err).Error("Failed to set up notifications")
		return
	}
	if svc == nil {
		a.log.Warn("No notification channel configured, skipping alerts")
		return
	}
	delivered := svc.Notify(ctx, matches)
	a.log.WithFields(map[string]interface{}{
		"matches":   len(matches),
		"delivered": delivered,
	}).Info("Notifications sent")
}

// splitSymbols parses a comma-separated --symbols value
func splitSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
