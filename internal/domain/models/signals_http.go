package models

// Request DTOs for the signal API. Defined in domain for reuse across
// handlers and tests.

// GenerateSignalsRequest runs the pipeline over the named symbols. An empty
// list falls back to the configured universe; zero-valued timeframe and
// lookback defer to the serving policy.
type GenerateSignalsRequest struct {
	Symbols   []string `json:"symbols" validate:"omitempty,max=50,dive,required"`
	Timeframe string   `json:"timeframe" validate:"omitempty,oneof=5m 15m 1h 1d"`
	Lookback  int      `json:"lookback" validate:"omitempty,gte=20,lte=5000"`
}

type LatestSignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

// GreeksRequest prices one option contract. A zero rate falls back to the
// configured risk-free rate.
type GreeksRequest struct {
	Spot        float64 `json:"spot" validate:"required,gt=0"`
	Strike      float64 `json:"strike" validate:"required,gt=0"`
	ExpiryYears float64 `json:"expiry_years" validate:"required,gt=0"`
	Volatility  float64 `json:"volatility" validate:"required,gt=0"`
	Rate        float64 `json:"rate" validate:"omitempty,gte=0,lte=1"`
	OptionType  string  `json:"option_type" validate:"required,oneof=CALL PUT"`
}

type BacktestRequest struct {
	Symbol         string  `json:"symbol" validate:"required"`
	StrategyType   string  `json:"strategy_type" validate:"required,oneof=STRADDLE IRON_CONDOR"`
	InitialCapital float64 `json:"initial_capital" default:"100000" validate:"gt=0"`
	Days           int     `json:"days" default:"90" validate:"gte=2,lte=2000"`
	Timeframe      string  `json:"timeframe" default:"1d" validate:"oneof=5m 15m 1h 1d"`
}

type BacktestJobRequest struct {
	BacktestRequest
}

type PerformanceRequest struct {
	Returns        []float64 `json:"returns" validate:"required,min=1"`
	InitialCapital float64   `json:"initial_capital" default:"100000" validate:"gt=0"`
}

type DriftRequest struct {
	Model     string              `json:"model" default:"default" validate:"required"`
	Reference *MonitoringSnapshot `json:"reference" validate:"required"`
	Current   *MonitoringSnapshot `json:"current" validate:"required"`
}

type StreamRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
}
