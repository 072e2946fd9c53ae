package notification

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/orion/internal/contracts"
)

// FormatAlert renders one match
func FormatAlert(r contracts.ScreeningResult) Message {
	var b strings.Builder
	writeResult(&b, r)
	return Message{
		Subject: fmt.Sprintf("Orion: %s matched (strength %.2f)", r.Symbol, r.SignalStrength),
		Text:    b.String(),
		Results: []contracts.ScreeningResult{r},
	}
}

// FormatBatch renders several matches, strongest signal first
func FormatBatch(results []contracts.ScreeningResult) Message {
	sorted := make([]contracts.ScreeningResult, len(results))
	copy(sorted, results)
	sortByStrength(sorted)

	symbols := make([]string, 0, len(sorted))
	for _, r := range sorted {
		symbols = append(symbols, r.Symbol)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d symbols matched: %s\n", len(sorted), strings.Join(symbols, ", "))
	for _, r := range sorted {
		b.WriteString("\n")
		writeResult(&b, r)
	}

	return Message{
		Subject: fmt.Sprintf("Orion: %d matches", len(sorted)),
		Text:    b.String(),
		Results: sorted,
	}
}

func sortByStrength(results []contracts.ScreeningResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SignalStrength > results[j].SignalStrength
	})
}

func writeResult(b *strings.Builder, r contracts.ScreeningResult) {
	fmt.Fprintf(b, "%s  strength %.2f\n", r.Symbol, r.SignalStrength)

	if q := r.Quote; q != nil {
		fmt.Fprintf(b, "  price $%.2f (%+.2f, %+.2f%%)\n", q.Price, q.Change, q.ChangePercent)
	}
	if len(r.ConditionsMet) > 0 {
		fmt.Fprintf(b, "  met: %s\n", strings.Join(r.ConditionsMet, ", "))
	}
	if len(r.ConditionsMissed) > 0 {
		fmt.Fprintf(b, "  missed: %s\n", strings.Join(r.ConditionsMissed, ", "))
	}

	if rec := r.OptionRecommendation; rec != nil {
		fmt.Fprintf(b, "  sell %s %s %s strike $%s exp %s\n",
			rec.Symbol, strings.ToUpper(string(rec.Type)), rec.UnderlyingSymbol,
			rec.Strike.StringFixed(2), rec.Expiration.Format("2006-01-02"))
		fmt.Fprintf(b, "  mid $%s, %d DTE, yield %.1f%%", rec.MidPrice.StringFixed(2), rec.DaysToExpiration, rec.PremiumYield*100)
		if rec.Delta != nil {
			fmt.Fprintf(b, ", delta %.2f", *rec.Delta)
		}
		b.WriteString("\n")
	}
}
