package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/orion/internal/storage"
)

var (
	historySymbol      string
	historyDays        int
	historyCount       int
	historyMatchesOnly bool
	historyOutput      string
)

// historyCmd shows stored screening history
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored screening history",
	Long: `Show stored screening history.

Without flags the most recent runs are listed.

Examples:
  orion history
  orion history --symbol AAPL --days 90
  orion history --matches-only --days 7 --output pretty`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "show results for one symbol")
	historyCmd.Flags().IntVar(&historyDays, "days", storage.DefaultHistoryDays, "days of history")
	historyCmd.Flags().IntVar(&historyCount, "count", storage.DefaultMatchLimit, "maximum rows")
	historyCmd.Flags().BoolVar(&historyMatchesOnly, "matches-only", false, "show recent matches across all symbols")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", OutputTable, "output format (table|pretty|json)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := validOutput(historyOutput, OutputTable, OutputPretty, OutputJSON); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	out := cmd.OutOrStdout()
	switch {
	case historySymbol != "":
		symbol := strings.ToUpper(strings.TrimSpace(historySymbol))
		results, err := repo.GetResultsBySymbol(ctx, symbol, historyDays)
		if err != nil {
			return err
		}
		return printSymbolHistory(out, historyOutput, symbol, historyDays, results)
	case historyMatchesOnly:
		results, err := repo.GetRecentMatches(ctx, historyDays, historyCount)
		if err != nil {
			return err
		}
		return printRecentMatches(out, historyOutput, historyDays, results)
	default:
		runs, err := repo.GetRecentRuns(ctx, historyCount)
		if err != nil {
			return err
		}
		return printRuns(out, historyOutput, runs)
	}
}
