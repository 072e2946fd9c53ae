package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/orion/internal/strategy"
)

// strategyCmd groups strategy file utilities
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Strategy file utilities",
}

// strategyValidateCmd parses a strategy and prints its normalized form
var strategyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a strategy YAML file",
	Long: `Parse and validate a strategy file. On success the normalized
document (defaults and labels filled in) and its content hash are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runStrategyValidate,
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyValidateCmd)
}

func runStrategyValidate(cmd *cobra.Command, args []string) error {
	strat, err := strategy.ParseFile(args[0])
	if err != nil {
		return err
	}

	normalized, err := strat.MarshalYAML()
	if err != nil {
		return err
	}
	hash, err := strat.Hash()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s is valid\n", args[0])
	printKeyValue(out, "Name", strat.Name(), 12)
	printKeyValue(out, "Combination", strat.Combination(), 12)
	printKeyValue(out, "Conditions", len(strat.Conditions()), 12)
	printKeyValue(out, "Hash", hash, 12)
	fmt.Fprintln(out)
	printSeparator(out, 60)
	fmt.Fprint(out, string(normalized))
	return nil
}
