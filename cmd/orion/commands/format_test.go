package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/internal/contracts"
)

func sampleMatch() contracts.ScreeningResult {
	delta := -0.28
	return contracts.ScreeningResult{
		Symbol:         "AAPL",
		Timestamp:      time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		Matches:        true,
		SignalStrength: 0.75,
		ConditionsMet:  []string{"Price > SMA(200)", "RSI(14) < 40"},
		ConditionsMissed: []string{
			"MACD histogram > 0",
		},
		Quote: &contracts.Quote{Symbol: "AAPL", Price: 172.5, Change: 1.25, ChangePercent: 0.73},
		OptionRecommendation: &contracts.OptionRecommendation{
			OptionContract: contracts.OptionContract{
				Symbol:       "AAPL240419P00165000",
				Strike:       decimal.NewFromInt(165),
				Expiration:   time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC),
				Type:         contracts.OptionPut,
				Volume:       1200,
				OpenInterest: 5400,
				Delta:        &delta,
			},
			MidPrice:         decimal.RequireFromString("2.10"),
			DaysToExpiration: 35,
			PremiumYield:     0.1328,
		},
	}
}

func TestSplitSymbols(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"single", "aapl", []string{"AAPL"}},
		{"trims and skips empties", " aapl, msft ,,nvda ", []string{"AAPL", "MSFT", "NVDA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSymbols(tt.raw))
		})
	}
}

func TestValidOutput(t *testing.T) {
	assert.NoError(t, validOutput("json", OutputTable, OutputJSON))
	err := validOutput("xml", OutputTable, OutputJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table|json")
}

func TestPrintTableHeader(t *testing.T) {
	var buf bytes.Buffer
	printTableHeader(&buf, []string{"A", "B", "C"}, []int{3, 4, 1})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "A    B     C", lines[0])
	// widths 3+4+1 plus two gaps of 2
	assert.Equal(t, strings.Repeat("─", 12), lines[1])
}

func TestPrintMatches(t *testing.T) {
	matches := []contracts.ScreeningResult{sampleMatch()}

	tests := []struct {
		format string
		want   []string
	}{
		{OutputPretty, []string{
			"AAPL",
			"Price: $172.50 (+0.73%)",
			"Signal Strength: 75.0%",
			"Conditions Met: Price > SMA(200), RSI(14) < 40",
			"Conditions Missed: MACD histogram > 0",
			"Option Recommendation (PUT):",
			"Strike: $165.00",
			"Expiration: 2024-04-19 (35 DTE)",
			"Premium Yield: 13.3%",
			"Mid Price: $2.10",
			"Delta: -0.28",
		}},
		{OutputTable, []string{"Symbol", "AAPL", "$172.50", "+0.73%", "75%", "PUT", "$165.00", "2024-04-19", "35", "$2.10", "13.3%"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printMatches(&buf, tt.format, matches))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestPrintMatches_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMatches(&buf, OutputJSON, []contracts.ScreeningResult{sampleMatch()}))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "AAPL", decoded[0]["symbol"])
	assert.Equal(t, true, decoded[0]["matches"])
}

func TestPrintMatches_WithoutQuoteOrOption(t *testing.T) {
	r := sampleMatch()
	r.Quote = nil
	r.OptionRecommendation = nil

	var buf bytes.Buffer
	require.NoError(t, printMatches(&buf, OutputTable, []contracts.ScreeningResult{r}))
	assert.Contains(t, buf.String(), "AAPL")
	assert.NotContains(t, buf.String(), "PUT")
}

func TestPrintSymbolHistory(t *testing.T) {
	results := []contracts.StoredResult{
		{ID: 2, RunID: 2, StrategyName: "ofi", ScreeningResult: sampleMatch()},
		{ID: 1, RunID: 1, StrategyName: "ofi", ScreeningResult: contracts.ScreeningResult{
			Symbol: "AAPL", Timestamp: time.Date(2024, 3, 14, 14, 30, 0, 0, time.UTC), Error: "quote timeout",
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, printSymbolHistory(&buf, OutputTable, "AAPL", 30, results))
	out := buf.String()
	assert.Contains(t, out, "Screening history for AAPL (last 30 days)")
	assert.Contains(t, out, "Yes")
	assert.Contains(t, out, "error: quote timeout")

	buf.Reset()
	require.NoError(t, printSymbolHistory(&buf, OutputPretty, "AAPL", 30, results))
	assert.Contains(t, buf.String(), "✓")
	assert.Contains(t, buf.String(), "✗")
	assert.Contains(t, buf.String(), "Option: $165.00 PUT exp 2024-04-19")
}

func TestPrintRecentMatches(t *testing.T) {
	results := []contracts.StoredResult{{ID: 1, RunID: 1, StrategyName: "ofi", ScreeningResult: sampleMatch()}}

	var buf bytes.Buffer
	require.NoError(t, printRecentMatches(&buf, OutputTable, 7, results))
	assert.Contains(t, buf.String(), "Recent matches (last 7 days)")
	assert.Contains(t, buf.String(), "$165.00")
	assert.Contains(t, buf.String(), "13.3%")

	buf.Reset()
	require.NoError(t, printRecentMatches(&buf, OutputPretty, 7, results))
	assert.Contains(t, buf.String(), "Option: $165.00 (Yield: 13.3%)")
}

func TestPrintRuns(t *testing.T) {
	runs := []contracts.StoredRun{{
		ID: 3, Timestamp: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		StrategyName: "ofi", SymbolsCount: 500, MatchesCount: 12, DurationSeconds: 42.37,
	}}

	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, OutputTable, runs))
	for _, w := range []string{"Recent screening runs:", "ofi", "500", "12", "42.4s"} {
		assert.Contains(t, buf.String(), w)
	}
}

func TestPrintStatus(t *testing.T) {
	stats := &contracts.RepositoryStats{TotalRuns: 4, TotalResults: 40, RecentMatches: 3, AvgMatchesPerRun: 0.75}
	paths := map[string]string{"storage": "sqlite", "database": "~/.orion/orion.db"}

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, OutputPretty, stats, nil, paths))
	out := buf.String()
	assert.Contains(t, out, "Orion System Status")
	assert.Contains(t, out, "0.8")
	assert.Contains(t, out, "No screening runs recorded yet.")
	assert.Contains(t, out, "~/.orion/orion.db")

	buf.Reset()
	last := &contracts.StoredRun{ID: 4, StrategyName: "ofi", SymbolsCount: 10, MatchesCount: 1}
	require.NoError(t, printStatus(&buf, OutputJSON, stats, last, paths))

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 4, decoded["statistics"]["total_runs"])
	assert.Equal(t, "ofi", decoded["last_run"]["strategy_name"])
}
