package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/internal/contracts"
)

const epsilon = 1e-9

// makeBars builds a gently trending, oscillating daily series
func makeBars(n int) []contracts.Bar {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := 0; i < n; i++ {
		c := 100 + 0.3*float64(i) + 4*math.Sin(float64(i)/3)
		bars[i] = contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1.5,
			Low:    c - 1.5,
			Close:  c,
			Volume: int64(1_000_000 + 10_000*(i%7)),
		}
	}
	return bars
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, epsilon)

	_, ok = SMA([]float64{1, 2}, 3)
	assert.False(t, ok)
}

func TestEMA_SeededWithSMA(t *testing.T) {
	// seed = mean(1,2,3) = 2, k = 0.5 → 3 → 4
	v, ok := EMA([]float64{1, 2, 3, 4, 5}, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, epsilon)

	series := EMASeries([]float64{1, 2, 3, 4, 5}, 3)
	assert.InDeltaSlice(t, []float64{2, 3, 4}, series, epsilon)

	// exactly n values: EMA equals the SMA seed
	v, ok = EMA([]float64{3, 6, 9}, 3)
	require.True(t, ok)
	assert.InDelta(t, 6.0, v, epsilon)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		period int
		want   float64
		ok     bool
	}{
		// seed gain 0.5 / loss 0.5, then +1 → gain 0.75, loss 0.25, RS 3
		{"wilder smoothing", []float64{1, 2, 1, 2}, 2, 75, true},
		{"only gains", []float64{1, 2, 3, 4}, 3, 100, true},
		{"flat", []float64{5, 5, 5, 5}, 3, 50, true},
		{"too short", []float64{1, 2, 3}, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RSI(tt.closes, tt.period)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, epsilon)
		})
	}
}

func TestRSI_Bounds(t *testing.T) {
	bars := makeBars(120)
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	v, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestMACD(t *testing.T) {
	// linear series: both EMAs lag by a constant, so MACD is flat and histogram 0
	res, ok := MACD([]float64{1, 2, 3, 4, 5}, 2, 3, 2)
	require.True(t, ok)
	assert.InDelta(t, 0.5, res.MACD, epsilon)
	require.NotNil(t, res.Signal)
	assert.InDelta(t, 0.5, *res.Signal, epsilon)
	assert.InDelta(t, 0.0, *res.Histogram, epsilon)

	// line available, signal not yet
	res, ok = MACD([]float64{1, 2, 3}, 2, 3, 2)
	require.True(t, ok)
	assert.Nil(t, res.Signal)
	assert.Nil(t, res.Histogram)

	_, ok = MACD([]float64{1, 2}, 2, 3, 2)
	assert.False(t, ok)
}

func TestBollinger(t *testing.T) {
	// mean 5, population σ 2
	upper, middle, lower, ok := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	require.True(t, ok)
	assert.InDelta(t, 9.0, upper, epsilon)
	assert.InDelta(t, 5.0, middle, epsilon)
	assert.InDelta(t, 1.0, lower, epsilon)
}

func TestATR(t *testing.T) {
	bars := []contracts.Bar{
		{Close: 10},
		{High: 12, Low: 9, Close: 11},  // TR 3
		{High: 13, Low: 11, Close: 12}, // TR 2
		{High: 12, Low: 10, Close: 11}, // TR 2
	}

	// seed (3+2)/2 = 2.5, then (2.5 + 2)/2 = 2.25
	v, ok := ATR(bars, 2)
	require.True(t, ok)
	assert.InDelta(t, 2.25, v, epsilon)

	_, ok = ATR(bars[:2], 2)
	assert.False(t, ok)
}

func TestCompute_WindowThresholds(t *testing.T) {
	type field func(*contracts.TechnicalIndicators) *float64

	tests := []struct {
		name    string
		field   field
		minBars int
	}{
		{"sma_20", func(i *contracts.TechnicalIndicators) *float64 { return i.SMA20 }, 20},
		{"sma_50", func(i *contracts.TechnicalIndicators) *float64 { return i.SMA50 }, 50},
		{"sma_60", func(i *contracts.TechnicalIndicators) *float64 { return i.SMA60 }, 60},
		{"sma_200", func(i *contracts.TechnicalIndicators) *float64 { return i.SMA200 }, 200},
		{"ema_12", func(i *contracts.TechnicalIndicators) *float64 { return i.EMA12 }, 12},
		{"ema_26", func(i *contracts.TechnicalIndicators) *float64 { return i.EMA26 }, 26},
		{"rsi_14", func(i *contracts.TechnicalIndicators) *float64 { return i.RSI14 }, 15},
		{"macd", func(i *contracts.TechnicalIndicators) *float64 { return i.MACD }, 26},
		{"macd_signal", func(i *contracts.TechnicalIndicators) *float64 { return i.MACDSignal }, 34},
		{"macd_histogram", func(i *contracts.TechnicalIndicators) *float64 { return i.MACDHistogram }, 34},
		{"volume_avg_20", func(i *contracts.TechnicalIndicators) *float64 { return i.VolumeAvg20 }, 20},
		{"volume_avg_50", func(i *contracts.TechnicalIndicators) *float64 { return i.VolumeAvg50 }, 50},
		{"bollinger_upper", func(i *contracts.TechnicalIndicators) *float64 { return i.BollingerUpper }, 20},
		{"bollinger_lower", func(i *contracts.TechnicalIndicators) *float64 { return i.BollingerLower }, 20},
		{"atr_14", func(i *contracts.TechnicalIndicators) *float64 { return i.ATR14 }, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			short := Compute("AAPL", makeBars(tt.minBars-1))
			assert.Nil(t, tt.field(short), "absent with %d bars", tt.minBars-1)

			enough := Compute("AAPL", makeBars(tt.minBars))
			require.NotNil(t, tt.field(enough), "present with %d bars", tt.minBars)
			assert.NotZero(t, *tt.field(enough))
		})
	}
}

func TestCompute_EmptySeries(t *testing.T) {
	ind := Compute("AAPL", nil)

	assert.Equal(t, "AAPL", ind.Symbol)
	assert.True(t, ind.Timestamp.IsZero())
	assert.Nil(t, ind.SMA20)
	assert.Nil(t, ind.RSI14)
	assert.Nil(t, ind.ATR14)
}

func TestCompute_Deterministic(t *testing.T) {
	bars := makeBars(MinBars + 50)

	a := Compute("MSFT", bars)
	b := Compute("MSFT", bars)

	assert.Equal(t, a, b)
	assert.Equal(t, bars[len(bars)-1].Date, a.Timestamp)
	require.NotNil(t, a.BollingerUpper)
	assert.Greater(t, *a.BollingerUpper, *a.BollingerMiddle)
	assert.Less(t, *a.BollingerLower, *a.BollingerMiddle)
	assert.InDelta(t, *a.SMA20, *a.BollingerMiddle, epsilon)
	assert.InDelta(t, *a.MACD-*a.MACDSignal, *a.MACDHistogram, epsilon)
}
