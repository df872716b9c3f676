package indicators

import (
	"fmt"

	"ShareWise/internal/domain/models"
)

// Config holds indicator lookback windows. Zero fields are replaced with
// the documented defaults at construction.
type Config struct {
	SMAShort        int     // default 10
	SMAMid          int     // default 20
	SMALong         int     // default 50
	EMAFast         int     // default 12
	EMASlow         int     // default 26
	MACDSignal      int     // default 9
	RSIPeriod       int     // default 14
	BollingerPeriod int     // default 20
	BollingerK      float64 // default 2.0
	ATRPeriod       int     // default 14
	StochPeriod     int     // default 14
	StochSmooth     int     // default 3
	WilliamsPeriod  int     // default 14
	LevelWindow     int     // default 20
	VolumePeriod    int     // default 20
	VolWindow       int     // default 20, realized-volatility lookback
}

// DefaultConfig returns the standard lookback set.
func DefaultConfig() Config {
	return Config{
		SMAShort:        10,
		SMAMid:          20,
		SMALong:         50,
		EMAFast:         12,
		EMASlow:         26,
		MACDSignal:      9,
		RSIPeriod:       14,
		BollingerPeriod: 20,
		BollingerK:      2.0,
		ATRPeriod:       14,
		StochPeriod:     14,
		StochSmooth:     3,
		WilliamsPeriod:  14,
		LevelWindow:     20,
		VolumePeriod:    20,
		VolWindow:       20,
	}
}

// Engine computes point-in-time indicator values from an OHLCV series.
// It is stateless; every call recomputes from the series it is given, so a
// single Engine is safe for concurrent use across symbols.
type Engine struct {
	cfg Config
}

// NewEngine creates an indicator engine, filling zero config fields with
// defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SMAShort <= 0 {
		cfg.SMAShort = def.SMAShort
	}
	if cfg.SMAMid <= 0 {
		cfg.SMAMid = def.SMAMid
	}
	if cfg.SMALong <= 0 {
		cfg.SMALong = def.SMALong
	}
	if cfg.EMAFast <= 0 {
		cfg.EMAFast = def.EMAFast
	}
	if cfg.EMASlow <= 0 {
		cfg.EMASlow = def.EMASlow
	}
	if cfg.MACDSignal <= 0 {
		cfg.MACDSignal = def.MACDSignal
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.BollingerPeriod <= 0 {
		cfg.BollingerPeriod = def.BollingerPeriod
	}
	if cfg.BollingerK <= 0 {
		cfg.BollingerK = def.BollingerK
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.StochPeriod <= 0 {
		cfg.StochPeriod = def.StochPeriod
	}
	if cfg.StochSmooth <= 0 {
		cfg.StochSmooth = def.StochSmooth
	}
	if cfg.WilliamsPeriod <= 0 {
		cfg.WilliamsPeriod = def.WilliamsPeriod
	}
	if cfg.LevelWindow <= 0 {
		cfg.LevelWindow = def.LevelWindow
	}
	if cfg.VolumePeriod <= 0 {
		cfg.VolumePeriod = def.VolumePeriod
	}
	if cfg.VolWindow <= 1 {
		cfg.VolWindow = def.VolWindow
	}
	return &Engine{cfg: cfg}
}

// Compute derives the full indicator set at the latest bar. Windows longer
// than the available history degrade to the statistic over all available
// bars; the only error is an empty series.
func (e *Engine) Compute(series models.OHLCVSeries) (*models.IndicatorSet, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("indicators: empty series")
	}

	closes := series.Closes()
	volumes := series.Volumes()
	last := series.Last()

	macdLine, macdSignal, macdHist := macd(closes, e.cfg.EMAFast, e.cfg.EMASlow, e.cfg.MACDSignal)
	upper, middle, lower := bollinger(closes, e.cfg.BollingerPeriod, e.cfg.BollingerK)
	stochK, stochD := stochastic(series, e.cfg.StochPeriod, e.cfg.StochSmooth)
	support, resistance := levels(series, e.cfg.LevelWindow)

	return &models.IndicatorSet{
		Close:  last.Close,
		Volume: last.Volume,

		SMA10: sma(closes, e.cfg.SMAShort),
		SMA20: sma(closes, e.cfg.SMAMid),
		SMA50: sma(closes, e.cfg.SMALong),
		EMA12: ema(closes, e.cfg.EMAFast),
		EMA26: ema(closes, e.cfg.EMASlow),

		MACD:          macdLine,
		MACDSignal:    macdSignal,
		MACDHistogram: macdHist,

		RSI:         rsi(closes, e.cfg.RSIPeriod),
		WilliamsR:   williamsR(series, e.cfg.WilliamsPeriod),
		StochasticK: stochK,
		StochasticD: stochD,

		BollingerUpper:  upper,
		BollingerMiddle: middle,
		BollingerLower:  lower,
		ATR:             atr(series, e.cfg.ATRPeriod),
		RealizedVol:     RealizedVolatility(LogReturns(series), e.cfg.VolWindow, BarsPerYearForTF(last.Timeframe)),

		Support:     support,
		Resistance:  resistance,
		VolumeRatio: volumeRatio(volumes, e.cfg.VolumePeriod),
	}, nil
}
