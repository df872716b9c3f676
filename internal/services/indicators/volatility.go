package indicators

import (
	"math"

	"ShareWise/internal/domain/models"
)

// stddev returns the population standard deviation of the trailing window.
func stddev(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	window := values[len(values)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(period)
	return math.Sqrt(variance)
}

// bollinger returns the upper, middle and lower bands: SMA of the window
// plus/minus k standard deviations.
func bollinger(closes []float64, period int, k float64) (upper, middle, lower float64) {
	middle = sma(closes, period)
	sd := stddev(closes, period)
	return middle + k*sd, middle, middle - k*sd
}

// atr computes Wilder's average true range over the trailing window. The
// first bar's true range is its high-low span; later bars include the gap
// from the previous close.
func atr(series models.OHLCVSeries, period int) float64 {
	if series.Len() == 0 {
		return 0
	}
	trs := make([]float64, series.Len())
	trs[0] = series[0].High - series[0].Low
	for i := 1; i < series.Len(); i++ {
		trs[i] = trueRange(series[i], series[i-1].Close)
	}
	if period > len(trs) {
		period = len(trs)
	}

	avg := 0.0
	for _, tr := range trs[:period] {
		avg += tr
	}
	avg /= float64(period)

	p := float64(period)
	for _, tr := range trs[period:] {
		avg = (avg*(p-1) + tr) / p
	}
	return avg
}

func trueRange(c models.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if hc := math.Abs(c.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(c.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}
