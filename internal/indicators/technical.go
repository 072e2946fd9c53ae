package indicators

import (
	"github.com/wonny/orion/internal/contracts"
)

// Indicator windows
const (
	PeriodRSI        = 14
	PeriodATR        = 14
	PeriodBollinger  = 20
	BollingerStdDevs = 2.0
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignal       = 9
)

// MinBars is the longest window any indicator needs (SMA200)
const MinBars = 200

// Compute calculates every indicator from bars (oldest first).
// Fields whose window is longer than the series stay nil.
// ⭐ SSOT: 기술적 지표 계산은 여기서만 (순수 함수, I/O 없음)
func Compute(symbol string, bars []contracts.Bar) *contracts.TechnicalIndicators {
	ind := &contracts.TechnicalIndicators{Symbol: symbol}
	if len(bars) == 0 {
		return ind
	}
	ind.Timestamp = bars[len(bars)-1].Date

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	ind.SMA20 = ptr(SMA(closes, 20))
	ind.SMA50 = ptr(SMA(closes, 50))
	ind.SMA60 = ptr(SMA(closes, 60))
	ind.SMA200 = ptr(SMA(closes, 200))

	ind.EMA12 = ptr(EMA(closes, 12))
	ind.EMA26 = ptr(EMA(closes, 26))

	ind.RSI14 = ptr(RSI(closes, PeriodRSI))

	if macd, ok := MACD(closes, MACDFast, MACDSlow, MACDSignal); ok {
		ind.MACD = ptr(macd.MACD, true)
		ind.MACDSignal = macd.Signal
		ind.MACDHistogram = macd.Histogram
	}

	ind.VolumeAvg20 = ptr(SMA(volumes, 20))
	ind.VolumeAvg50 = ptr(SMA(volumes, 50))

	if upper, middle, lower, ok := Bollinger(closes, PeriodBollinger, BollingerStdDevs); ok {
		ind.BollingerUpper = &upper
		ind.BollingerMiddle = &middle
		ind.BollingerLower = &lower
	}

	ind.ATR14 = ptr(ATR(bars, PeriodATR))

	return ind
}

func ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
