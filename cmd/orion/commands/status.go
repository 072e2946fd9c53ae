package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/orion/internal/contracts"
)

var statusOutput string

// statusCmd shows repository statistics
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored statistics and configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", OutputPretty, "output format (pretty|json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := validOutput(statusOutput, OutputPretty, OutputJSON); err != nil {
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

	stats, err := repo.GetStatistics(ctx)
	if err != nil {
		return err
	}

	var last *contracts.StoredRun
	runs, err := repo.GetRecentRuns(ctx, 1)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		last = &runs[0]
	}

	paths := map[string]string{
		"storage":  a.cfg.Storage.Driver,
		"strategy": a.cfg.Screening.StrategyPath,
		"provider": a.cfg.Provider.Name,
	}
	if a.cfg.Storage.Driver == "" || a.cfg.Storage.Driver == "sqlite" {
		paths["database"] = a.cfg.Storage.SQLitePath
	}

	return printStatus(cmd.OutOrStdout(), statusOutput, stats, last, paths)
}
