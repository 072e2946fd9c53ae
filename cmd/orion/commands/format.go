package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/orion/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// Output formats accepted by --output
const (
	OutputTable  = "table"
	OutputPretty = "pretty"
	OutputJSON   = "json"
)

const timestampLayout = "2006-01-02 15:04:05"

func validOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid --output %q (want %s)", format, strings.Join(allowed, "|"))
}

// printSeparator prints a visual separator of width n
func printSeparator(w io.Writer, n int) {
	fmt.Fprintln(w, strings.Repeat("─", n))
}

// printDoubleSeparator prints a double-line separator of width n
func printDoubleSeparator(w io.Writer, n int) {
	fmt.Fprintln(w, strings.Repeat("═", n))
}

// printTableRow prints one left-aligned row
func printTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		if i < len(values)-1 {
			fmt.Fprintf(w, "%-*s  ", widths[i], val)
		} else {
			fmt.Fprint(w, val)
		}
	}
	fmt.Fprintln(w)
}

// printTableHeader prints a header row and a separator sized to the columns
func printTableHeader(w io.Writer, columns []string, widths []int) {
	printTableRow(w, columns, widths)

	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2
		}
	}
	printSeparator(w, total)
}

// printKeyValue prints an indented key-value pair
func printKeyValue(w io.Writer, key string, value interface{}, keyWidth int) {
	fmt.Fprintf(w, "  %-*s : %v\n", keyWidth, key, value)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func percent(v float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, v*100)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// printStats prints the run summary
func printStats(w io.Writer, stats contracts.ScreeningStats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Screening complete in %.1f seconds\n", stats.DurationSeconds)
	printKeyValue(w, "Run ID", stats.RunID, 12)
	printKeyValue(w, "Total", stats.TotalSymbols, 12)
	printKeyValue(w, "Successful", stats.Successful, 12)
	printKeyValue(w, "Failed", stats.Failed, 12)
	printKeyValue(w, "Matches", stats.Matches, 12)
	fmt.Fprintln(w)
}

// printMatches renders matches in the requested format
func printMatches(w io.Writer, format string, matches []contracts.ScreeningResult) error {
	switch format {
	case OutputJSON:
		return printJSON(w, matches)
	case OutputTable:
		printMatchTable(w, matches)
	default:
		printMatchesPretty(w, matches)
	}
	return nil
}

var matchColumns = []string{"Symbol", "Price", "Change", "Signal", "Option", "Strike", "Expiry", "DTE", "Mid", "Yield"}
var matchWidths = []int{8, 10, 8, 7, 5, 9, 10, 4, 7, 7}

func printMatchTable(w io.Writer, matches []contracts.ScreeningResult) {
	printTableHeader(w, matchColumns, matchWidths)
	for _, r := range matches {
		row := []string{r.Symbol, "-", "-", percent(r.SignalStrength, 0), "-", "-", "-", "-", "-", "-"}
		if q := r.Quote; q != nil {
			row[1] = fmt.Sprintf("$%.2f", q.Price)
			row[2] = fmt.Sprintf("%+.2f%%", q.ChangePercent)
		}
		if rec := r.OptionRecommendation; rec != nil {
			row[4] = strings.ToUpper(string(rec.Type))
			row[5] = "$" + rec.Strike.StringFixed(2)
			row[6] = rec.Expiration.Format("2006-01-02")
			row[7] = fmt.Sprintf("%d", rec.DaysToExpiration)
			row[8] = "$" + rec.MidPrice.StringFixed(2)
			row[9] = percent(rec.PremiumYield, 1)
		}
		printTableRow(w, row, matchWidths)
	}
}

func printMatchesPretty(w io.Writer, matches []contracts.ScreeningResult) {
	fmt.Fprintln(w, "Matching symbols:")
	printSeparator(w, 60)

	for _, r := range matches {
		fmt.Fprintf(w, "\n%s\n", r.Symbol)
		if q := r.Quote; q != nil {
			fmt.Fprintf(w, "  Price: $%.2f (%+.2f%%)\n", q.Price, q.ChangePercent)
		}
		fmt.Fprintf(w, "  Signal Strength: %s\n", percent(r.SignalStrength, 1))
		fmt.Fprintf(w, "  Conditions Met: %s\n", joinOrDash(r.ConditionsMet))
		if len(r.ConditionsMissed) > 0 {
			fmt.Fprintf(w, "  Conditions Missed: %s\n", strings.Join(r.ConditionsMissed, ", "))
		}

		if rec := r.OptionRecommendation; rec != nil {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  Option Recommendation (%s):\n", strings.ToUpper(string(rec.Type)))
			fmt.Fprintf(w, "    Contract: %s\n", rec.Symbol)
			fmt.Fprintf(w, "    Strike: $%s\n", rec.Strike.StringFixed(2))
			fmt.Fprintf(w, "    Expiration: %s (%d DTE)\n", rec.Expiration.Format("2006-01-02"), rec.DaysToExpiration)
			fmt.Fprintf(w, "    Premium Yield: %s\n", percent(rec.PremiumYield, 1))
			fmt.Fprintf(w, "    Mid Price: $%s\n", rec.MidPrice.StringFixed(2))
			fmt.Fprintf(w, "    Volume: %d\n", rec.Volume)
			fmt.Fprintf(w, "    Open Interest: %d\n", rec.OpenInterest)
			if rec.Delta != nil {
				fmt.Fprintf(w, "    Delta: %.2f\n", *rec.Delta)
			}
		}
	}
	fmt.Fprintln(w)
}

// printSymbolHistory renders GetResultsBySymbol rows
func printSymbolHistory(w io.Writer, format, symbol string, days int, results []contracts.StoredResult) error {
	switch format {
	case OutputJSON:
		return printJSON(w, results)
	case OutputPretty:
		fmt.Fprintf(w, "Screening history for %s (last %d days):\n\n", symbol, days)
		for _, r := range results {
			mark := "✗"
			if r.Matches {
				mark = "✓"
			}
			fmt.Fprintf(w, "%s %s  [%s]\n", mark, formatTimestamp(r.Timestamp), r.StrategyName)
			if r.Error != "" {
				fmt.Fprintf(w, "  Error: %s\n", r.Error)
			}
			if r.Matches {
				fmt.Fprintf(w, "  Signal: %s\n", percent(r.SignalStrength, 1))
				fmt.Fprintf(w, "  Conditions: %s\n", joinOrDash(r.ConditionsMet))
				if rec := r.OptionRecommendation; rec != nil {
					fmt.Fprintf(w, "  Option: $%s %s exp %s\n", rec.Strike.StringFixed(2), strings.ToUpper(string(rec.Type)), rec.Expiration.Format("2006-01-02"))
				}
			}
			fmt.Fprintln(w)
		}
	default:
		fmt.Fprintf(w, "Screening history for %s (last %d days):\n", symbol, days)
		widths := []int{19, 5, 6}
		printTableHeader(w, []string{"Timestamp", "Match", "Signal", "Conditions Met"}, widths)
		for _, r := range results {
			match := "No"
			if r.Matches {
				match = "Yes"
			}
			conditions := joinOrDash(r.ConditionsMet)
			if r.Error != "" {
				conditions = "error: " + r.Error
			}
			printTableRow(w, []string{formatTimestamp(r.Timestamp), match, percent(r.SignalStrength, 0), conditions}, widths)
		}
	}
	return nil
}

// printRecentMatches renders GetRecentMatches rows
func printRecentMatches(w io.Writer, format string, days int, results []contracts.StoredResult) error {
	switch format {
	case OutputJSON:
		return printJSON(w, results)
	case OutputPretty:
		fmt.Fprintf(w, "Recent matches (last %d days):\n\n", days)
		for _, r := range results {
			fmt.Fprintf(w, "🎯 %s - %s\n", r.Symbol, formatTimestamp(r.Timestamp))
			fmt.Fprintf(w, "   Signal: %s\n", percent(r.SignalStrength, 1))
			if rec := r.OptionRecommendation; rec != nil {
				fmt.Fprintf(w, "   Option: $%s (Yield: %s)\n", rec.Strike.StringFixed(2), percent(rec.PremiumYield, 1))
			}
			fmt.Fprintln(w)
		}
	default:
		fmt.Fprintf(w, "Recent matches (last %d days):\n", days)
		widths := []int{19, 8, 6, 9, 7}
		printTableHeader(w, []string{"Timestamp", "Symbol", "Signal", "Strike", "Yield", "Strategy"}, widths)
		for _, r := range results {
			strike, yield := "N/A", "-"
			if rec := r.OptionRecommendation; rec != nil {
				strike = "$" + rec.Strike.StringFixed(2)
				yield = percent(rec.PremiumYield, 1)
			}
			printTableRow(w, []string{formatTimestamp(r.Timestamp), r.Symbol, percent(r.SignalStrength, 0), strike, yield, r.StrategyName}, widths)
		}
	}
	return nil
}

// printRuns renders GetRecentRuns rows
func printRuns(w io.Writer, format string, runs []contracts.StoredRun) error {
	if format == OutputJSON {
		return printJSON(w, runs)
	}

	fmt.Fprintln(w, "Recent screening runs:")
	widths := []int{4, 19, 20, 7, 7}
	printTableHeader(w, []string{"ID", "Timestamp", "Strategy", "Symbols", "Matches", "Duration"}, widths)
	for _, r := range runs {
		printTableRow(w, []string{
			fmt.Sprintf("%d", r.ID),
			formatTimestamp(r.Timestamp),
			r.StrategyName,
			fmt.Sprintf("%d", r.SymbolsCount),
			fmt.Sprintf("%d", r.MatchesCount),
			fmt.Sprintf("%.1fs", r.DurationSeconds),
		}, widths)
	}
	return nil
}

// printStatus renders repository statistics and the latest run
func printStatus(w io.Writer, format string, stats *contracts.RepositoryStats, last *contracts.StoredRun, paths map[string]string) error {
	if format == OutputJSON {
		return printJSON(w, map[string]interface{}{
			"statistics": stats,
			"last_run":   last,
			"config":     paths,
		})
	}

	fmt.Fprintln(w, "Orion System Status")
	printDoubleSeparator(w, 40)
	fmt.Fprintln(w)

	printKeyValue(w, "Total screening runs", stats.TotalRuns, 24)
	printKeyValue(w, "Total results", stats.TotalResults, 24)
	printKeyValue(w, "Recent matches (30d)", stats.RecentMatches, 24)
	printKeyValue(w, "Average matches per run", fmt.Sprintf("%.1f", stats.AvgMatchesPerRun), 24)
	fmt.Fprintln(w)

	if last != nil {
		fmt.Fprintln(w, "Last screening run:")
		printKeyValue(w, "Time", formatTimestamp(last.Timestamp), 8)
		printKeyValue(w, "Strategy", last.StrategyName, 8)
		printKeyValue(w, "Symbols", last.SymbolsCount, 8)
		printKeyValue(w, "Matches", last.MatchesCount, 8)
	} else {
		fmt.Fprintln(w, "No screening runs recorded yet.")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	for _, key := range []string{"storage", "database", "strategy", "provider"} {
		if v, ok := paths[key]; ok {
			printKeyValue(w, key, v, 8)
		}
	}
	return nil
}
