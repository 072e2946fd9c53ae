package evaluator

import (
	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/strategy"
)

// strengthTolerance absorbs float error when normalized weights are summed
const strengthTolerance = 1e-9

// Snapshot is everything a strategy can look at for one symbol.
// Previous and PreviousPrice describe the prior period and are only
// needed by crossover conditions.
type Snapshot struct {
	Quote         *contracts.Quote
	Indicators    *contracts.TechnicalIndicators
	Previous      *contracts.TechnicalIndicators
	PreviousPrice *float64
}

// Result is the outcome of evaluating a strategy.
// Met and Missed are disjoint and together list every condition label.
type Result struct {
	Matches        bool
	SignalStrength float64
	Met            []string
	Missed         []string
}

// Evaluate checks every condition (no short-circuit) and combines them.
// A condition whose input is unavailable is missed, never an error.
// ⭐ SSOT: 전략 조건 평가는 여기서만
func Evaluate(s *strategy.Strategy, snap Snapshot) Result {
	conditions := s.Conditions()
	res := Result{
		Met:    make([]string, 0, len(conditions)),
		Missed: make([]string, 0, len(conditions)),
	}

	metWeight := 0.0
	for _, cond := range conditions {
		if Check(cond, snap) {
			res.Met = append(res.Met, cond.Label())
			metWeight += cond.Weight()
		} else {
			res.Missed = append(res.Missed, cond.Label())
		}
	}

	if total := s.TotalWeight(); total > 0 {
		res.SignalStrength = clamp01(metWeight / total)
	}

	switch s.Combination() {
	case strategy.CombineAll:
		res.Matches = len(res.Missed) == 0
	case strategy.CombineAny:
		res.Matches = len(res.Met) > 0
	case strategy.CombineWeighted:
		min, _ := s.MinSignalStrength()
		res.Matches = res.SignalStrength >= min-strengthTolerance
	}

	return res
}

// Check evaluates a single condition against the snapshot
func Check(cond strategy.Condition, snap Snapshot) bool {
	price := quotePrice(snap.Quote)
	ind := snap.Indicators

	switch c := cond.(type) {
	case strategy.PriceVsMA:
		var ma *float64
		if c.EMA {
			ma = ind.EMA(c.Period)
		} else {
			ma = ind.SMA(c.Period)
		}
		return compareRatio(c.Compare, price, ma)

	case strategy.BollingerPosition:
		return compareRatio(c.Compare, price, band(ind, c.Band))

	case strategy.RSIThreshold:
		return compare(c.Compare, field(ind, func(i *contracts.TechnicalIndicators) *float64 { return i.RSI14 }))

	case strategy.MACDHistogram:
		return compare(c.Compare, field(ind, func(i *contracts.TechnicalIndicators) *float64 { return i.MACDHistogram }))

	case strategy.VolumeSpike:
		if snap.Quote == nil {
			return false
		}
		volume := float64(snap.Quote.Volume)
		avg := field(ind, func(i *contracts.TechnicalIndicators) *float64 { return i.VolumeAvg20 })
		return compareRatio(c.Compare, &volume, avg)

	case strategy.ATRPercent:
		atr := field(ind, func(i *contracts.TechnicalIndicators) *float64 { return i.ATR14 })
		if atr == nil || price == nil || *price <= 0 {
			return false
		}
		return c.Compare.Apply(*atr / *price * 100)

	case strategy.ChangePercent:
		if snap.Quote == nil {
			return false
		}
		return c.Compare.Apply(snap.Quote.ChangePercent)

	case strategy.Crossover:
		return crossed(c, snap, price)
	}

	return false
}

func crossed(c strategy.Crossover, snap Snapshot, price *float64) bool {
	fast := seriesValue(c.Fast, price, snap.Indicators)
	slow := seriesValue(c.Slow, price, snap.Indicators)
	prevFast := seriesValue(c.Fast, snap.PreviousPrice, snap.Previous)
	prevSlow := seriesValue(c.Slow, snap.PreviousPrice, snap.Previous)
	if fast == nil || slow == nil || prevFast == nil || prevSlow == nil {
		return false
	}

	if c.Above {
		return *prevFast <= *prevSlow && *fast > *slow
	}
	return *prevFast >= *prevSlow && *fast < *slow
}

func seriesValue(s strategy.Series, price *float64, ind *contracts.TechnicalIndicators) *float64 {
	if s == strategy.SeriesPrice {
		return price
	}
	if ind == nil {
		return nil
	}

	switch s {
	case strategy.SeriesSMA20:
		return ind.SMA20
	case strategy.SeriesSMA50:
		return ind.SMA50
	case strategy.SeriesSMA60:
		return ind.SMA60
	case strategy.SeriesSMA200:
		return ind.SMA200
	case strategy.SeriesEMA12:
		return ind.EMA12
	case strategy.SeriesEMA26:
		return ind.EMA26
	case strategy.SeriesMACD:
		return ind.MACD
	case strategy.SeriesMACDSignal:
		return ind.MACDSignal
	case strategy.SeriesRSI14:
		return ind.RSI14
	}
	return nil
}

func band(ind *contracts.TechnicalIndicators, b strategy.Band) *float64 {
	if ind == nil {
		return nil
	}
	switch b {
	case strategy.BandUpper:
		return ind.BollingerUpper
	case strategy.BandMiddle:
		return ind.BollingerMiddle
	case strategy.BandLower:
		return ind.BollingerLower
	}
	return nil
}

func field(ind *contracts.TechnicalIndicators, get func(*contracts.TechnicalIndicators) *float64) *float64 {
	if ind == nil {
		return nil
	}
	return get(ind)
}

func quotePrice(q *contracts.Quote) *float64 {
	if q == nil || q.Price <= 0 {
		return nil
	}
	p := q.Price
	return &p
}

func compare(cmp strategy.Comparison, v *float64) bool {
	return v != nil && cmp.Apply(*v)
}

// compareRatio applies cmp to num/den; a missing or zero denominator misses
func compareRatio(cmp strategy.Comparison, num, den *float64) bool {
	if num == nil || den == nil || *den == 0 {
		return false
	}
	return cmp.Apply(*num / *den)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
