package models

import (
	"encoding/json"
	"math"
)

// Ratio is a float64 whose JSON form tolerates the +Inf sentinels some
// metrics use (Sortino with no downside, Calmar with zero drawdown). Those
// encode as null; callers detect the sentinel with math.IsInf.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// PerformanceMetrics is the risk/return profile derived from a daily
// returns series plus initial capital.
type PerformanceMetrics struct {
	TotalTrades         int       `json:"total_trades"`
	WinRate             float64   `json:"win_rate"`
	TotalPnL            float64   `json:"total_pnl"`
	TotalReturn         float64   `json:"total_return"`
	AnnualizedReturn    float64   `json:"annualized_return"`
	SharpeRatio         float64   `json:"sharpe_ratio"`
	SortinoRatio        Ratio     `json:"sortino_ratio"`
	CalmarRatio         Ratio     `json:"calmar_ratio"`
	MaxDrawdown         float64   `json:"max_drawdown"`
	MaxDrawdownDuration int       `json:"max_drawdown_duration"`
	Volatility          float64   `json:"volatility"`
	VaR95               float64   `json:"var_95"`
	ExpectedShortfall   float64   `json:"expected_shortfall"`
	Skewness            float64   `json:"skewness"`
	Kurtosis            float64   `json:"kurtosis"`
	Returns             []float64 `json:"returns"`
}
