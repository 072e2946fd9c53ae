package indicators

import (
	"math"

	"github.com/wonny/orion/internal/contracts"
)

// Bollinger returns middle ± mult·σ over the last n closes (population σ)
func Bollinger(closes []float64, n int, mult float64) (upper, middle, lower float64, ok bool) {
	middle, ok = SMA(closes, n)
	if !ok {
		return 0, 0, 0, false
	}

	variance := 0.0
	for _, c := range closes[len(closes)-n:] {
		d := c - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(n))

	return middle + mult*sd, middle, middle - mult*sd, true
}

// TrueRange is max(H−L, |H−prevClose|, |L−prevClose|)
func TrueRange(bar contracts.Bar, prevClose float64) float64 {
	return math.Max(bar.High-bar.Low,
		math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
}

// ATR returns the Wilder-smoothed average true range.
// True range needs a previous close, so period+1 bars are required.
func ATR(bars []contracts.Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += TrueRange(bars[i], bars[i-1].Close)
	}
	p := float64(period)
	atr /= p

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*(p-1) + TrueRange(bars[i], bars[i-1].Close)) / p
	}
	return atr, true
}
