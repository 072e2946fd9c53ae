package options

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/strategy"
)

// Rejection reasons, in filter order
const (
	RejectType      = "option_type"
	RejectDTE       = "dte"
	RejectVolume    = "volume"
	RejectOI        = "open_interest"
	RejectQuote     = "bid_ask"
	RejectMoneyness = "strike_ratio"
	RejectDelta     = "delta"
)

var rejectOrder = []string{RejectType, RejectDTE, RejectVolume, RejectOI, RejectQuote, RejectMoneyness, RejectDelta}

// Diagnostics explains how a chain was narrowed down
type Diagnostics struct {
	Total      int
	Candidates int
	Rejected   map[string]int
}

// String renders rejections in filter order, e.g. "12 contracts, 0 passed (dte=8, volume=4)"
func (d Diagnostics) String() string {
	parts := make([]string, 0, len(d.Rejected))
	for _, reason := range rejectOrder {
		if n := d.Rejected[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
		}
	}
	s := fmt.Sprintf("%d contracts, %d passed", d.Total, d.Candidates)
	if len(parts) > 0 {
		s += " (" + strings.Join(parts, ", ") + ")"
	}
	return s
}

// Recommender picks the best premium-income contract from a chain
// ⭐ SSOT: 옵션 추천 로직은 여기서만
type Recommender struct {
	sel strategy.OptionSelection
}

// NewRecommender creates a recommender for normalized selection settings
func NewRecommender(sel strategy.OptionSelection) *Recommender {
	return &Recommender{sel: sel}
}

type candidate struct {
	contract contracts.OptionContract
	mid      decimal.Decimal
	dte      int
	yield    float64
}

// Recommend filters and ranks the chain. No surviving contract returns nil;
// that is a normal outcome, not an error.
func (r *Recommender) Recommend(quote *contracts.Quote, chain []contracts.OptionContract, asOf time.Time) (*contracts.OptionRecommendation, Diagnostics) {
	diag := Diagnostics{Total: len(chain), Rejected: make(map[string]int)}

	candidates := make([]candidate, 0, len(chain))
	for _, c := range chain {
		dte := DaysToExpiration(asOf, c.Expiration)
		if reason := r.checkContract(quote, c, dte); reason != "" {
			diag.Rejected[reason]++
			continue
		}

		mid := c.Mid()
		candidates = append(candidates, candidate{
			contract: c,
			mid:      mid,
			dte:      dte,
			yield:    PremiumYield(mid, c.Strike, dte),
		})
	}
	diag.Candidates = len(candidates)

	if len(candidates) == 0 {
		return nil, diag
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return r.less(candidates[i], candidates[j])
	})

	best := candidates[0]
	return &contracts.OptionRecommendation{
		OptionContract:   best.contract,
		MidPrice:         best.mid,
		DaysToExpiration: best.dte,
		PremiumYield:     best.yield,
		Reason:           r.reason(best, diag),
	}, diag
}

// checkContract returns the first failed filter, or "" when the contract passes
func (r *Recommender) checkContract(quote *contracts.Quote, c contracts.OptionContract, dte int) string {
	if string(c.Type) != r.sel.OptionType {
		return RejectType
	}
	if dte <= 0 || dte < r.sel.MinDTE || dte > r.sel.MaxDTE {
		return RejectDTE
	}
	if c.Volume < r.sel.MinVolume {
		return RejectVolume
	}
	if c.OpenInterest < r.sel.MinOpenInterest {
		return RejectOI
	}
	if !c.Bid.IsPositive() || c.Ask.LessThan(c.Bid) || !c.Strike.IsPositive() {
		return RejectQuote
	}

	if r.sel.MinStrikeRatio > 0 || r.sel.MaxStrikeRatio > 0 {
		if quote == nil || quote.Price <= 0 {
			return RejectMoneyness
		}
		ratio := c.Strike.InexactFloat64() / quote.Price
		if ratio < r.sel.MinStrikeRatio {
			return RejectMoneyness
		}
		if r.sel.MaxStrikeRatio > 0 && ratio > r.sel.MaxStrikeRatio {
			return RejectMoneyness
		}
	}

	// contracts without greeks skip the delta band
	if c.Delta != nil && (r.sel.MinDelta > 0 || r.sel.MaxDelta > 0) {
		d := math.Abs(*c.Delta)
		if d < r.sel.MinDelta {
			return RejectDelta
		}
		if r.sel.MaxDelta > 0 && d > r.sel.MaxDelta {
			return RejectDelta
		}
	}

	return ""
}

// less orders by yield desc, open interest desc, distance to target delta asc
// (missing delta last), strike asc, expiration asc, contract symbol asc
func (r *Recommender) less(a, b candidate) bool {
	if a.yield != b.yield {
		return a.yield > b.yield
	}
	if a.contract.OpenInterest != b.contract.OpenInterest {
		return a.contract.OpenInterest > b.contract.OpenInterest
	}

	da, okA := r.deltaDistance(a.contract)
	db, okB := r.deltaDistance(b.contract)
	if okA != okB {
		return okA
	}
	if okA && da != db {
		return da < db
	}

	if !a.contract.Strike.Equal(b.contract.Strike) {
		return a.contract.Strike.LessThan(b.contract.Strike)
	}
	if !a.contract.Expiration.Equal(b.contract.Expiration) {
		return a.contract.Expiration.Before(b.contract.Expiration)
	}
	return a.contract.Symbol < b.contract.Symbol
}

func (r *Recommender) deltaDistance(c contracts.OptionContract) (float64, bool) {
	if c.Delta == nil {
		return 0, false
	}
	return math.Abs(math.Abs(*c.Delta) - r.sel.TargetDelta), true
}

func (r *Recommender) reason(best candidate, diag Diagnostics) string {
	c := best.contract
	s := fmt.Sprintf("%s %s strike %s exp %s (%d DTE): mid %s, annualized yield %.2f%%, OI %d",
		c.UnderlyingSymbol, c.Type, c.Strike.String(), c.Expiration.Format("2006-01-02"),
		best.dte, best.mid.StringFixed(2), best.yield*100, c.OpenInterest)
	if c.Delta != nil {
		s += fmt.Sprintf(", delta %.2f", *c.Delta)
	}
	return s + "; best of " + diag.String()
}

// DaysToExpiration counts calendar days between the asOf date and the
// expiration date, both taken as UTC dates
func DaysToExpiration(asOf, expiration time.Time) int {
	from := dateOf(asOf)
	to := dateOf(expiration)
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PremiumYield annualizes mid / strike over the days to expiration
func PremiumYield(mid, strike decimal.Decimal, dte int) float64 {
	if dte <= 0 || !strike.IsPositive() {
		return 0
	}
	return mid.Div(strike).InexactFloat64() * 365 / float64(dte)
}
