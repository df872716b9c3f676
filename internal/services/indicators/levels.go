package indicators

import "ShareWise/internal/domain/models"

// levels derives support and resistance as the lowest low and highest high
// of the trailing window. Deliberately simplified; not pivot-point based.
func levels(series models.OHLCVSeries, window int) (support, resistance float64) {
	hh, ll := highLow(series, window)
	return ll, hh
}

// volumeRatio relates the latest volume to the trailing average. A zero
// average (no volume data) scores the neutral 1.0.
func volumeRatio(volumes []float64, period int) float64 {
	if len(volumes) == 0 {
		return 1.0
	}
	avg := sma(volumes, period)
	if avg == 0 {
		return 1.0
	}
	return volumes[len(volumes)-1] / avg
}
