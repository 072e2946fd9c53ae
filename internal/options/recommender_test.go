package options

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/strategy"
)

var asOf = time.Date(2024, 1, 17, 15, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func f(v float64) *float64 { return &v }

func defaultSelection() strategy.OptionSelection {
	return strategy.OptionSelection{
		OptionType:      "put",
		MinDTE:          21,
		MaxDTE:          45,
		MinVolume:       10,
		MinOpenInterest: 100,
		TargetDelta:     0.3,
	}
}

func put(symbol, strike, bid, ask string, dte int, oi int64, delta *float64) contracts.OptionContract {
	return contracts.OptionContract{
		Symbol:           symbol,
		UnderlyingSymbol: "AAPL",
		Strike:           d(strike),
		Expiration:       asOf.AddDate(0, 0, dte),
		Type:             contracts.OptionPut,
		Bid:              d(bid),
		Ask:              d(ask),
		Volume:           50,
		OpenInterest:     oi,
		Delta:            delta,
	}
}

func TestPremiumYield(t *testing.T) {
	y := PremiumYield(d("1.55"), d("180"), 30)
	assert.InDelta(t, 0.1049, y, 5e-4)

	assert.Zero(t, PremiumYield(d("1.55"), d("180"), 0))
	assert.Zero(t, PremiumYield(d("1.55"), decimal.Zero, 30))
}

func TestDaysToExpiration(t *testing.T) {
	tests := []struct {
		name       string
		asOf       time.Time
		expiration time.Time
		want       int
	}{
		{"same day", asOf, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), 0},
		{"time of day ignored", time.Date(2024, 1, 17, 23, 59, 0, 0, time.UTC), time.Date(2024, 1, 18, 0, 1, 0, 0, time.UTC), 1},
		{"monthly expiry", asOf, time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC), 30},
		{"expired", asOf, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysToExpiration(tt.asOf, tt.expiration))
		})
	}
}

func TestRecommend_DeterministicYield(t *testing.T) {
	r := NewRecommender(defaultSelection())
	chain := []contracts.OptionContract{put("AAPL240216P00180000", "180", "1.50", "1.60", 30, 1200, f(-0.28))}

	rec, diag := r.Recommend(&contracts.Quote{Symbol: "AAPL", Price: 190}, chain, asOf)
	require.NotNil(t, rec)

	assert.Equal(t, "AAPL240216P00180000", rec.Symbol)
	assert.True(t, rec.MidPrice.Equal(d("1.55")))
	assert.Equal(t, 30, rec.DaysToExpiration)
	assert.InDelta(t, 0.1049, rec.PremiumYield, 5e-4)
	assert.Contains(t, rec.Reason, "30 DTE")
	assert.Equal(t, 1, diag.Candidates)
}

func TestRecommend_Filters(t *testing.T) {
	call := put("AAPL240216C00200000", "200", "2.00", "2.10", 30, 1000, f(0.3))
	call.Type = contracts.OptionCall

	lowVolume := put("LOWVOL", "180", "1.50", "1.60", 30, 1000, nil)
	lowVolume.Volume = 1

	tests := []struct {
		name     string
		sel      func(*strategy.OptionSelection)
		contract contracts.OptionContract
		reject   string
	}{
		{"wrong type", nil, call, RejectType},
		{"too short", nil, put("SHORT", "180", "1.5", "1.6", 7, 1000, nil), RejectDTE},
		{"too long", nil, put("LONG", "180", "1.5", "1.6", 90, 1000, nil), RejectDTE},
		{"expired", func(s *strategy.OptionSelection) { s.MinDTE = 0 }, put("EXPIRED", "180", "1.5", "1.6", 0, 1000, nil), RejectDTE},
		{"thin volume", nil, lowVolume, RejectVolume},
		{"thin open interest", nil, put("THINOI", "180", "1.5", "1.6", 30, 5, nil), RejectOI},
		{"zero bid", nil, put("NOBID", "180", "0", "0.05", 30, 1000, nil), RejectQuote},
		{"crossed market", nil, put("CROSSED", "180", "1.6", "1.5", 30, 1000, nil), RejectQuote},
		{"strike too close", func(s *strategy.OptionSelection) { s.MaxStrikeRatio = 0.9 }, put("ATM", "185", "3.0", "3.2", 30, 1000, nil), RejectMoneyness},
		{"strike too far", func(s *strategy.OptionSelection) { s.MinStrikeRatio = 0.8 }, put("DEEP", "140", "0.1", "0.2", 30, 1000, nil), RejectMoneyness},
		{"delta too high", func(s *strategy.OptionSelection) { s.MaxDelta = 0.35 }, put("HIGHDELTA", "188", "4.0", "4.2", 30, 1000, f(-0.45)), RejectDelta},
		{"delta too low", func(s *strategy.OptionSelection) { s.MinDelta = 0.15 }, put("LOWDELTA", "150", "0.3", "0.4", 30, 1000, f(-0.05)), RejectDelta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := defaultSelection()
			if tt.sel != nil {
				tt.sel(&sel)
			}

			rec, diag := NewRecommender(sel).Recommend(&contracts.Quote{Symbol: "AAPL", Price: 190}, []contracts.OptionContract{tt.contract}, asOf)

			assert.Nil(t, rec)
			assert.Equal(t, 0, diag.Candidates)
			assert.Equal(t, 1, diag.Rejected[tt.reject], "rejections: %v", diag.Rejected)
		})
	}
}

func TestRecommend_DeltaBandSkippedWithoutGreeks(t *testing.T) {
	sel := defaultSelection()
	sel.MinDelta, sel.MaxDelta = 0.2, 0.35

	rec, _ := NewRecommender(sel).Recommend(&contracts.Quote{Price: 190}, []contracts.OptionContract{
		put("NOGREEKS", "180", "1.5", "1.6", 30, 1000, nil),
	}, asOf)

	require.NotNil(t, rec)
	assert.Equal(t, "NOGREEKS", rec.Symbol)
}

func TestRecommend_Ranking(t *testing.T) {
	tests := []struct {
		name  string
		chain []contracts.OptionContract
		want  string
	}{
		{
			name: "highest yield wins",
			chain: []contracts.OptionContract{
				put("LOW", "180", "1.00", "1.10", 30, 5000, f(-0.3)),
				put("HIGH", "180", "2.00", "2.10", 30, 200, f(-0.4)),
			},
			want: "HIGH",
		},
		{
			name: "equal yield, higher open interest",
			chain: []contracts.OptionContract{
				put("SMALLOI", "180", "1.50", "1.60", 30, 300, f(-0.3)),
				put("BIGOI", "180", "1.50", "1.60", 30, 3000, f(-0.2)),
			},
			want: "BIGOI",
		},
		{
			name: "equal yield and oi, delta nearest target",
			chain: []contracts.OptionContract{
				put("FAR", "180", "1.50", "1.60", 30, 1000, f(-0.45)),
				put("NEAR", "180", "1.50", "1.60", 30, 1000, f(-0.31)),
			},
			want: "NEAR",
		},
		{
			name: "missing delta ranks after known delta",
			chain: []contracts.OptionContract{
				put("UNKNOWN", "180", "1.50", "1.60", 30, 1000, nil),
				put("KNOWN", "180", "1.50", "1.60", 30, 1000, f(-0.9)),
			},
			want: "KNOWN",
		},
		{
			name: "full tie falls back to lowest strike",
			chain: []contracts.OptionContract{
				put("S200", "200", "2.00", "2.00", 30, 1000, nil),
				put("S100", "100", "1.00", "1.00", 30, 1000, nil),
			},
			want: "S100",
		},
		{
			name: "then contract symbol",
			chain: []contracts.OptionContract{
				put("B", "180", "1.50", "1.60", 30, 1000, nil),
				put("A", "180", "1.50", "1.60", 30, 1000, nil),
			},
			want: "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecommender(defaultSelection())
			rec, diag := r.Recommend(&contracts.Quote{Price: 190}, tt.chain, asOf)
			require.NotNil(t, rec)
			assert.Equal(t, tt.want, rec.Symbol)
			assert.Equal(t, len(tt.chain), diag.Candidates)

			// input order must not matter
			reversed := []contracts.OptionContract{tt.chain[1], tt.chain[0]}
			again, _ := r.Recommend(&contracts.Quote{Price: 190}, reversed, asOf)
			require.NotNil(t, again)
			assert.Equal(t, tt.want, again.Symbol)
		})
	}
}

func TestRecommend_EmptyChain(t *testing.T) {
	rec, diag := NewRecommender(defaultSelection()).Recommend(&contracts.Quote{Price: 190}, nil, asOf)
	assert.Nil(t, rec)
	assert.Equal(t, "0 contracts, 0 passed", diag.String())
}

func TestDiagnostics_String(t *testing.T) {
	diag := Diagnostics{Total: 12, Candidates: 0, Rejected: map[string]int{RejectVolume: 4, RejectDTE: 8}}
	assert.Equal(t, "12 contracts, 0 passed (dte=8, volume=4)", diag.String())
}
