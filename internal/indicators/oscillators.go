package indicators

// RSI returns the Relative Strength Index using Wilder's smoothing.
// The first averages are the plain mean of the first period deltas;
// each later delta updates avg = (prev·(period-1) + x) / period.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50, true // flat series
	case avgLoss == 0:
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// MACDResult holds the latest MACD line, signal and histogram.
// Signal and Histogram are nil until enough MACD values exist.
type MACDResult struct {
	MACD      float64
	Signal    *float64
	Histogram *float64
}

// MACD computes EMA(fast) − EMA(slow) and its EMA(signal) line
func MACD(closes []float64, fast, slow, signal int) (*MACDResult, bool) {
	if fast >= slow || len(closes) < slow {
		return nil, false
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)

	// align: slowSeries[j] is at close index j+slow-1, fastSeries[j+slow-fast]
	offset := slow - fast
	line := make([]float64, len(slowSeries))
	for j := range slowSeries {
		line[j] = fastSeries[j+offset] - slowSeries[j]
	}

	res := &MACDResult{MACD: line[len(line)-1]}
	if sig, ok := EMA(line, signal); ok {
		hist := res.MACD - sig
		res.Signal = &sig
		res.Histogram = &hist
	}
	return res, true
}
