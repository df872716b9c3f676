package indicators

import "ShareWise/internal/domain/models"

// rsi computes Wilder's relative strength index over the trailing period.
// When the average loss is zero it saturates at 100; a completely flat
// series scores the neutral 50. A single bar also scores 50.
func rsi(closes []float64, period int) float64 {
	if len(closes) < 2 {
		return 50
	}
	deltas := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		deltas[i-1] = closes[i] - closes[i-1]
	}
	if period > len(deltas) {
		period = len(deltas)
	}

	var avgGain, avgLoss float64
	for _, d := range deltas[:period] {
		if d > 0 {
			avgGain += d
		} else {
			avgLoss += -d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for _, d := range deltas[period:] {
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// williamsR computes Williams %R over the trailing window. Range is
// [-100, 0]; a flat window scores the midpoint -50.
func williamsR(series models.OHLCVSeries, period int) float64 {
	hh, ll := highLow(series, period)
	if hh == ll {
		return -50
	}
	return (hh - series.Last().Close) / (hh - ll) * -100
}

// stochastic computes %K over the trailing window and %D as the mean %K of
// the last smooth positions. A flat window scores the neutral 50.
func stochastic(series models.OHLCVSeries, period, smooth int) (k, d float64) {
	k = stochasticK(series, period)

	if smooth > series.Len() {
		smooth = series.Len()
	}
	sum := 0.0
	for i := 0; i < smooth; i++ {
		sum += stochasticK(series[:series.Len()-i], period)
	}
	d = sum / float64(smooth)
	return k, d
}

func stochasticK(series models.OHLCVSeries, period int) float64 {
	hh, ll := highLow(series, period)
	if hh == ll {
		return 50
	}
	return (series.Last().Close - ll) / (hh - ll) * 100
}

// highLow returns the highest high and lowest low of the trailing window.
func highLow(series models.OHLCVSeries, period int) (hh, ll float64) {
	if period > series.Len() {
		period = series.Len()
	}
	window := series[series.Len()-period:]
	hh, ll = window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > hh {
			hh = c.High
		}
		if c.Low < ll {
			ll = c.Low
		}
	}
	return hh, ll
}
