package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType is put or call
type OptionType string

const (
	OptionPut  OptionType = "put"
	OptionCall OptionType = "call"
)

// OptionContract is one listed contract of an option chain
type OptionContract struct {
	Symbol            string          `json:"symbol"` // OCC contract symbol
	UnderlyingSymbol  string          `json:"underlying_symbol"`
	Strike            decimal.Decimal `json:"strike"`
	Expiration        time.Time       `json:"expiration"`
	Type              OptionType      `json:"option_type"`
	Bid               decimal.Decimal `json:"bid"`
	Ask               decimal.Decimal `json:"ask"`
	Last              decimal.Decimal `json:"last"`
	Volume            int64           `json:"volume"`
	OpenInterest      int64           `json:"open_interest"`
	ImpliedVolatility *float64        `json:"implied_volatility,omitempty"`
	Delta             *float64        `json:"delta,omitempty"`
}

// Mid is the bid/ask midpoint
func (c OptionContract) Mid() decimal.Decimal {
	return c.Bid.Add(c.Ask).Div(decimal.NewFromInt(2))
}

// OptionRecommendation is the contract selected for premium income
// ⭐ SSOT: Options engine → Screener 추천 결과
type OptionRecommendation struct {
	OptionContract
	MidPrice         decimal.Decimal `json:"mid_price"`
	DaysToExpiration int             `json:"days_to_expiration"`
	PremiumYield     float64         `json:"premium_yield"` // annualized
	Reason           string          `json:"reason"`
}
