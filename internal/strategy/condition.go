package strategy

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a condition variant
type Kind string

const (
	KindPriceVsSMA        Kind = "price_vs_sma"
	KindPriceVsEMA        Kind = "price_vs_ema"
	KindRSIThreshold      Kind = "rsi_threshold"
	KindVolumeSpike       Kind = "volume_spike"
	KindMACDHistogram     Kind = "macd_histogram"
	KindBollingerPosition Kind = "bollinger_position"
	KindATRPercent        Kind = "atr_percent"
	KindChangePercent     Kind = "change_percent"
	KindCrossesAbove      Kind = "crosses_above"
	KindCrossesBelow      Kind = "crosses_below"
)

// Operator is a comparison applied to a resolved value
type Operator string

const (
	OpGT      Operator = "gt"
	OpGTE     Operator = "gte"
	OpLT      Operator = "lt"
	OpLTE     Operator = "lte"
	OpBetween Operator = "between"
)

var operatorAliases = map[string]Operator{
	"gt": OpGT, ">": OpGT,
	"gte": OpGTE, ">=": OpGTE,
	"lt": OpLT, "<": OpLT,
	"lte": OpLTE, "<=": OpLTE,
	"between": OpBetween,
}

// Comparison is an operator with its bounds. Between is inclusive.
type Comparison struct {
	Op   Operator
	Low  float64 // the single threshold for non-between operators
	High float64
}

// Apply reports whether v satisfies the comparison
func (c Comparison) Apply(v float64) bool {
	switch c.Op {
	case OpGT:
		return v > c.Low
	case OpGTE:
		return v >= c.Low
	case OpLT:
		return v < c.Low
	case OpLTE:
		return v <= c.Low
	case OpBetween:
		return v >= c.Low && v <= c.High
	}
	return false
}

func (c Comparison) String() string {
	if c.Op == OpBetween {
		return fmt.Sprintf("between_%s_%s", fmtNum(c.Low), fmtNum(c.High))
	}
	return fmt.Sprintf("%s_%s", c.Op, fmtNum(c.Low))
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Series names a value usable on either side of a crossover
type Series string

const (
	SeriesPrice      Series = "price"
	SeriesSMA20      Series = "sma_20"
	SeriesSMA50      Series = "sma_50"
	SeriesSMA60      Series = "sma_60"
	SeriesSMA200     Series = "sma_200"
	SeriesEMA12      Series = "ema_12"
	SeriesEMA26      Series = "ema_26"
	SeriesMACD       Series = "macd"
	SeriesMACDSignal Series = "macd_signal"
	SeriesRSI14      Series = "rsi_14"
)

var knownSeries = map[Series]bool{
	SeriesPrice: true, SeriesSMA20: true, SeriesSMA50: true, SeriesSMA60: true,
	SeriesSMA200: true, SeriesEMA12: true, SeriesEMA26: true, SeriesMACD: true,
	SeriesMACDSignal: true, SeriesRSI14: true,
}

// Band selects a Bollinger band
type Band string

const (
	BandUpper  Band = "upper"
	BandMiddle Band = "middle"
	BandLower  Band = "lower"
)

// Condition is a closed set of rule variants. The evaluator switches
// over the concrete types; adding a kind means adding a type here.
type Condition interface {
	Kind() Kind
	Label() string
	Weight() float64
	sealed()
}

type base struct {
	label  string
	weight float64
}

func (b base) Label() string { return b.label }
func (b base) Weight() float64 { return b.weight }
func (base) sealed() {}

// PriceVsMA compares price / moving average against the bounds
// (gt 1 means price above the average).
type PriceVsMA struct {
	base
	EMA     bool
	Period  int
	Compare Comparison
}

func (c PriceVsMA) Kind() Kind {
	if c.EMA {
		return KindPriceVsEMA
	}
	return KindPriceVsSMA
}

// RSIThreshold compares RSI-14
type RSIThreshold struct {
	base
	Compare Comparison
}

func (RSIThreshold) Kind() Kind { return KindRSIThreshold }

// VolumeSpike compares quote volume / 20-day average volume
type VolumeSpike struct {
	base
	Compare Comparison
}

func (VolumeSpike) Kind() Kind { return KindVolumeSpike }

// MACDHistogram compares the MACD histogram
type MACDHistogram struct {
	base
	Compare Comparison
}

func (MACDHistogram) Kind() Kind { return KindMACDHistogram }

// BollingerPosition compares price / band
type BollingerPosition struct {
	base
	Band    Band
	Compare Comparison
}

func (BollingerPosition) Kind() Kind { return KindBollingerPosition }

// ATRPercent compares ATR-14 as a percentage of price
type ATRPercent struct {
	base
	Compare Comparison
}

func (ATRPercent) Kind() Kind { return KindATRPercent }

// ChangePercent compares the quote's daily change percent
type ChangePercent struct {
	base
	Compare Comparison
}

func (ChangePercent) Kind() Kind { return KindChangePercent }

// Crossover is true when Fast crossed Slow between the previous and
// current period. It needs both periods' values.
type Crossover struct {
	base
	Above bool
	Fast  Series
	Slow  Series
}

func (c Crossover) Kind() Kind {
	if c.Above {
		return KindCrossesAbove
	}
	return KindCrossesBelow
}

func defaultLabel(kind Kind, spec ConditionSpec, cmp Comparison) string {
	parts := []string{string(kind)}
	switch kind {
	case KindPriceVsSMA, KindPriceVsEMA:
		parts = append(parts, strconv.Itoa(spec.Period), cmp.String())
	case KindBollingerPosition:
		parts = append(parts, spec.Band, cmp.String())
	case KindCrossesAbove, KindCrossesBelow:
		parts = append(parts, spec.Fast, spec.Slow)
	default:
		parts = append(parts, cmp.String())
	}
	return strings.Join(parts, "_")
}
