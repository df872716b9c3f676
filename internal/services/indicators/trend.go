package indicators

// sma returns the mean of the trailing window. With fewer values than the
// window, the mean of all available values is used instead.
func sma(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// emaSeries computes the exponential moving average at every index,
// seeded from the first value with multiplier 2/(period+1).
func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// ema returns the exponential moving average at the latest index.
func ema(values []float64, period int) float64 {
	s := emaSeries(values, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// macd returns the latest MACD line (fast EMA minus slow EMA), its signal
// line (EMA of the MACD line) and the histogram (line minus signal).
func macd(closes []float64, fast, slow, signalPeriod int) (line, signal, histogram float64) {
	if len(closes) == 0 {
		return 0, 0, 0
	}
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signalPeriod)

	line = macdLine[len(macdLine)-1]
	signal = signalLine[len(signalLine)-1]
	histogram = line - signal
	return line, signal, histogram
}
