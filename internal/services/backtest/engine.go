package backtest

import (
	"fmt"
	"math"

	"ShareWise/internal/domain/models"
)

// Daily P&L heuristics per strategy, in percent of underlying move.
const (
	straddleMoveThresholdPct = 2.0
	straddleGainPerExcessPct = 100.0
	straddleDailyDecay       = 50.0

	condorQuietThresholdPct = 1.0
	condorDailyCredit       = 100.0
	condorLossPerExcessPct  = 100.0

	defaultInitialCapital = 100000.0
	tradingDaysPerYear    = 252.0
)

// Engine simulates F&O strategy P&L day by day over an OHLCV series.
// It holds no run state: every Run builds a fresh accumulator, so repeated
// calls never leak trades into each other.
type Engine struct{}

// NewEngine creates a backtest engine.
func NewEngine() *Engine { return &Engine{} }

// runState accumulates one backtest pass.
type runState struct {
	trades []models.BacktestTrade
	curve  []float64
	value  float64
}

// Run simulates the configured strategy over the series in ascending
// timestamp order, one day at a time. The series must carry at least two
// bars (a daily move needs a previous close) and the strategy type is
// mandatory.
func (e *Engine) Run(cfg models.BacktestConfig, series models.OHLCVSeries) (*models.BacktestReport, error) {
	if cfg.StrategyType == "" {
		return nil, fmt.Errorf("backtest: strategy_type is required")
	}
	if cfg.StrategyType != models.StrategyStraddle && cfg.StrategyType != models.StrategyIronCondor {
		return nil, fmt.Errorf("backtest: unknown strategy %q", cfg.StrategyType)
	}
	if series.Len() < 2 {
		return nil, fmt.Errorf("backtest: need at least 2 bars, got %d", series.Len())
	}
	capital := cfg.InitialCapital
	if capital <= 0 {
		capital = defaultInitialCapital
	}

	state := &runState{
		trades: make([]models.BacktestTrade, 0, series.Len()-1),
		curve:  []float64{capital},
		value:  capital,
	}
	returns := make([]float64, 0, series.Len()-1)

	for i := 1; i < series.Len(); i++ {
		prev := series[i-1].Close
		bar := series[i]
		movePct := 0.0
		if prev != 0 {
			movePct = (bar.Close - prev) / prev * 100
		}

		pnl := simulateStrategyDay(cfg.StrategyType, movePct)
		if state.value != 0 {
			returns = append(returns, pnl/state.value)
		} else {
			returns = append(returns, 0)
		}
		state.value += pnl
		state.curve = append(state.curve, state.value)
		state.trades = append(state.trades, models.BacktestTrade{
			Date:            bar.Bucket,
			Strategy:        string(cfg.StrategyType),
			PnL:             pnl,
			UnderlyingPrice: bar.Close,
		})
	}

	return buildReport(cfg, capital, state, returns), nil
}

// simulateStrategyDay maps one day's underlying move to strategy P&L.
// A straddle pays on large moves and bleeds premium on quiet days; an iron
// condor collects credit on quiet days and loses proportionally beyond its
// wings.
func simulateStrategyDay(strategy models.StrategyType, movePct float64) float64 {
	move := math.Abs(movePct)
	switch strategy {
	case models.StrategyStraddle:
		if move > straddleMoveThresholdPct {
			return (move - straddleMoveThresholdPct) * straddleGainPerExcessPct
		}
		return -straddleDailyDecay
	case models.StrategyIronCondor:
		if move < condorQuietThresholdPct {
			return condorDailyCredit
		}
		return -(move - condorQuietThresholdPct) * condorLossPerExcessPct
	default:
		return 0
	}
}

func buildReport(cfg models.BacktestConfig, capital float64, state *runState, returns []float64) *models.BacktestReport {
	report := &models.BacktestReport{
		Symbol:         cfg.Symbol,
		Strategy:       cfg.StrategyType,
		InitialCapital: capital,
		FinalValue:     state.value,
		TotalTrades:    len(state.trades),
		Trades:         state.trades,
		PortfolioCurve: state.curve,
		MaxDrawdown:    maxDrawdown(state.curve),
		SharpeRatio:    sharpe(returns),
	}

	var winSum, lossSum float64
	for i, tr := range state.trades {
		report.TotalPnL += tr.PnL
		if tr.PnL > 0 {
			report.WinningTrades++
			winSum += tr.PnL
		} else if tr.PnL < 0 {
			report.LosingTrades++
			lossSum += tr.PnL
		}
		if i == 0 || tr.PnL > report.MaxProfit {
			report.MaxProfit = tr.PnL
		}
		if i == 0 || tr.PnL < report.MaxLoss {
			report.MaxLoss = tr.PnL
		}
	}
	if report.TotalTrades > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	}
	if report.WinningTrades > 0 {
		report.AvgWin = winSum / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = lossSum / float64(report.LosingTrades)
	}
	return report
}

// maxDrawdown reports the largest peak-to-trough fraction of the portfolio
// curve, always >= 0.
func maxDrawdown(curve []float64) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe annualizes mean/std of daily returns; zero when the deviation
// vanishes or the sample is too small.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
