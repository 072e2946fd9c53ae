package indicators

// SMA returns the mean of the last n values
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}

	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// EMA returns the latest exponential moving average of values
func EMA(values []float64, n int) (float64, bool) {
	series := EMASeries(values, n)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// EMASeries returns the EMA for every index from n-1 onwards.
// The first value is seeded with the SMA of the first n values,
// then ema = (v - prev)·k + prev with k = 2/(n+1).
func EMASeries(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return nil
	}

	seed, _ := SMA(values[:n], n)
	k := 2.0 / float64(n+1)

	out := make([]float64, 0, len(values)-n+1)
	out = append(out, seed)

	prev := seed
	for _, v := range values[n:] {
		prev = (v-prev)*k + prev
		out = append(out, prev)
	}
	return out
}
