package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// OptionGreeks is the Black-Scholes price and sensitivity set for one
// option contract. Theta is per calendar day, vega per 1% volatility move,
// rho per 1% rate move.
type OptionGreeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// StrategyType names an F&O strategy the backtester can simulate.
type StrategyType string

const (
	StrategyStraddle   StrategyType = "STRADDLE"
	StrategyIronCondor StrategyType = "IRON_CONDOR"
)

// BacktestConfig describes one backtest run. StrategyType is mandatory.
type BacktestConfig struct {
	Symbol         string       `json:"symbol"`
	StrategyType   StrategyType `json:"strategy_type"`
	InitialCapital float64      `json:"initial_capital"`
}

// BacktestTrade is one simulated day's outcome, appended in timestamp order.
type BacktestTrade struct {
	Date            time.Time `json:"date"`
	Strategy        string    `json:"strategy"`
	PnL             float64   `json:"pnl"`
	UnderlyingPrice float64   `json:"underlying_price"`
}

// BacktestReport is the accumulated outcome of a full backtest pass.
type BacktestReport struct {
	Symbol         string          `json:"symbol"`
	Strategy       StrategyType    `json:"strategy"`
	InitialCapital float64         `json:"initial_capital"`
	FinalValue     float64         `json:"final_value"`
	TotalPnL       float64         `json:"total_pnl"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	WinRate        float64         `json:"win_rate"`
	AvgWin         float64         `json:"avg_win"`
	AvgLoss        float64         `json:"avg_loss"`
	MaxProfit      float64         `json:"max_profit"`
	MaxLoss        float64         `json:"max_loss"`
	SharpeRatio    float64         `json:"sharpe_ratio"`
	MaxDrawdown    float64         `json:"max_drawdown"`
	Trades         []BacktestTrade `json:"trades"`
	PortfolioCurve []float64       `json:"portfolio_curve"`
}
