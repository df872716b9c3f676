package indicators

import (
	"math"

	"ShareWise/internal/domain/models"
)

// LogReturns computes r_t = ln(C_t / C_{t-1}) over the series. It returns a
// slice of length len(series)-1, or nil if fewer than two bars exist.
func LogReturns(series models.OHLCVSeries) []float64 {
	if series.Len() < 2 {
		return nil
	}
	out := make([]float64, 0, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		prev := series[i-1].Close
		cur := series[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the latest
// rolling window using the given number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYearForTF returns the approximate number of trading bars per year
// for a timeframe, assuming 252 sessions of 6.25 hours.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "5m":
		return 252 * 75
	case "15m":
		return 252 * 25
	case "1h":
		return 252 * 6.25
	case "1d":
		return 252
	default:
		return 252
	}
}
