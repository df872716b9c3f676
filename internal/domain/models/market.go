package models

import "time"

// Candle represents an OHLCV record for indicator computation and backtests.
// Timeframe tags ingested bars with their resolution bucket; the realized
// volatility annualization reads it, the rest of the computation code does
// not.
type Candle struct {
	Bucket    time.Time
	Symbol    string
	Timeframe string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// OHLCVSeries is a time-ascending sequence of candles for one symbol.
// The series is owned by the caller and never mutated by the core.
type OHLCVSeries []Candle

// Len reports the number of bars.
func (s OHLCVSeries) Len() int { return len(s) }

// Last returns the most recent bar. Callers must check Len() > 0 first.
func (s OHLCVSeries) Last() Candle { return s[len(s)-1] }

// Closes extracts the close column.
func (s OHLCVSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume column.
func (s OHLCVSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}
