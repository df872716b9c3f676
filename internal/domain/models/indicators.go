package models

// IndicatorSet holds point-in-time indicator values computed from the
// trailing window of an OHLCV series ending at the latest bar.
type IndicatorSet struct {
	Close  float64
	Volume float64

	SMA10 float64
	SMA20 float64
	SMA50 float64
	EMA12 float64
	EMA26 float64

	MACD          float64
	MACDSignal    float64
	MACDHistogram float64

	RSI         float64
	WilliamsR   float64
	StochasticK float64
	StochasticD float64

	BollingerUpper  float64
	BollingerMiddle float64
	BollingerLower  float64
	ATR             float64
	RealizedVol     float64 // annualized, from trailing log returns

	Support     float64
	Resistance  float64
	VolumeRatio float64
}

// AsMap flattens the set into name->value form for model payloads and
// feature attribution.
func (s *IndicatorSet) AsMap() map[string]float64 {
	return map[string]float64{
		"close":            s.Close,
		"volume":           s.Volume,
		"sma_10":           s.SMA10,
		"sma_20":           s.SMA20,
		"sma_50":           s.SMA50,
		"ema_12":           s.EMA12,
		"ema_26":           s.EMA26,
		"macd":             s.MACD,
		"macd_signal":      s.MACDSignal,
		"macd_histogram":   s.MACDHistogram,
		"rsi":              s.RSI,
		"williams_r":       s.WilliamsR,
		"stochastic_k":     s.StochasticK,
		"stochastic_d":     s.StochasticD,
		"bollinger_upper":  s.BollingerUpper,
		"bollinger_middle": s.BollingerMiddle,
		"bollinger_lower":  s.BollingerLower,
		"atr":              s.ATR,
		"realized_vol":     s.RealizedVol,
		"support":          s.Support,
		"resistance":       s.Resistance,
		"volume_ratio":     s.VolumeRatio,
	}
}
