package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
)

func dailySeries(closes ...float64) models.OHLCVSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.OHLCVSeries, len(closes))
	for i, c := range closes {
		series[i] = models.Candle{
			Bucket: base.AddDate(0, 0, i),
			Symbol: "NIFTY",
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return series
}

// quietCloses builds n+1 bars whose daily change stays well under 1%.
func quietCloses(n int) []float64 {
	closes := make([]float64, n+1)
	closes[0] = 100
	for i := 1; i <= n; i++ {
		closes[i] = closes[i-1] + 0.05
	}
	return closes
}

func TestRun_IronCondorQuietMonth(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{
		Symbol:         "NIFTY",
		StrategyType:   models.StrategyIronCondor,
		InitialCapital: 100000,
	}

	report, err := engine.Run(cfg, dailySeries(quietCloses(30)...))
	require.NoError(t, err)

	// 30 quiet days collect the full daily credit each day.
	assert.Equal(t, 30, report.TotalTrades)
	assert.InDelta(t, 3000.0, report.TotalPnL, 1e-9)
	assert.InDelta(t, 1.0, report.WinRate, 1e-9)
	assert.Equal(t, 30, report.WinningTrades)
	assert.Equal(t, 0, report.LosingTrades)
	assert.InDelta(t, 100.0, report.AvgWin, 1e-9)
	assert.Zero(t, report.AvgLoss)
	assert.InDelta(t, 103000.0, report.FinalValue, 1e-9)
	assert.Zero(t, report.MaxDrawdown)
	assert.Greater(t, report.SharpeRatio, 0.0)
}

func TestRun_IronCondorLosesOnLargeMove(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyIronCondor}

	// 100 -> 103 is a 3% move, two points past the 1% wing.
	report, err := engine.Run(cfg, dailySeries(100, 103))
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalTrades)
	assert.InDelta(t, -200.0, report.Trades[0].PnL, 1e-9)
	assert.Zero(t, report.WinRate)
	assert.InDelta(t, -200.0, report.AvgLoss, 1e-9)
}

func TestRun_StraddleProfitsOnMoveDecaysWhenQuiet(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyStraddle}

	// Day 1: 3% move pays one point of excess. Day 2: flat, premium decays.
	report, err := engine.Run(cfg, dailySeries(100, 103, 103.01))
	require.NoError(t, err)

	require.Equal(t, 2, report.TotalTrades)
	assert.InDelta(t, 100.0, report.Trades[0].PnL, 1e-9)
	assert.InDelta(t, -50.0, report.Trades[1].PnL, 1e-9)
	assert.InDelta(t, 50.0, report.TotalPnL, 1e-9)
	assert.InDelta(t, 0.5, report.WinRate, 1e-9)
	assert.InDelta(t, 100.0, report.AvgWin, 1e-9)
	assert.InDelta(t, -50.0, report.AvgLoss, 1e-9)
	assert.InDelta(t, 100.0, report.MaxProfit, 1e-9)
	assert.InDelta(t, -50.0, report.MaxLoss, 1e-9)
}

func TestRun_StraddleDownMoveAlsoPays(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyStraddle}

	// -3% move pays the same as +3%.
	report, err := engine.Run(cfg, dailySeries(100, 97))
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalTrades)
	assert.InDelta(t, 100.0, report.Trades[0].PnL, 1e-9)
}

func TestRun_TradeLogCarriesBarContext(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyIronCondor}
	series := dailySeries(100, 100.2, 100.3)

	report, err := engine.Run(cfg, series)
	require.NoError(t, err)

	require.Len(t, report.Trades, 2)
	assert.Equal(t, series[1].Bucket, report.Trades[0].Date)
	assert.Equal(t, series[2].Bucket, report.Trades[1].Date)
	assert.Equal(t, string(models.StrategyIronCondor), report.Trades[0].Strategy)
	assert.InDelta(t, 100.2, report.Trades[0].UnderlyingPrice, 1e-9)
	assert.Len(t, report.PortfolioCurve, 3)
	assert.InDelta(t, defaultInitialCapital, report.PortfolioCurve[0], 1e-9)
}

func TestRun_MaxDrawdownTracksRunningPeak(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{
		StrategyType:   models.StrategyStraddle,
		InitialCapital: 10000,
	}

	// Five near-flat days bleed 50 apiece with no recovery.
	closes := quietCloses(5)
	report, err := engine.Run(cfg, dailySeries(closes...))
	require.NoError(t, err)

	assert.InDelta(t, 250.0/10000.0, report.MaxDrawdown, 1e-9)
	assert.Less(t, report.SharpeRatio, 0.0)
}

func TestRun_FreshStatePerRun(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyIronCondor, InitialCapital: 100000}
	long := dailySeries(quietCloses(30)...)

	first, err := engine.Run(cfg, long)
	require.NoError(t, err)
	second, err := engine.Run(cfg, long)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A shorter follow-up run must not inherit the previous trade log.
	short, err := engine.Run(cfg, dailySeries(100, 100.1))
	require.NoError(t, err)
	assert.Equal(t, 1, short.TotalTrades)
	assert.Len(t, short.Trades, 1)
}

func TestRun_DefaultsInitialCapital(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyIronCondor}

	report, err := engine.Run(cfg, dailySeries(100, 100.1))
	require.NoError(t, err)
	assert.InDelta(t, defaultInitialCapital, report.InitialCapital, 1e-9)
}

func TestRun_SingleTradeHasZeroSharpe(t *testing.T) {
	engine := NewEngine()
	cfg := models.BacktestConfig{StrategyType: models.StrategyIronCondor}

	report, err := engine.Run(cfg, dailySeries(100, 100.1))
	require.NoError(t, err)
	assert.Zero(t, report.SharpeRatio)
}

func TestRun_Validation(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Run(models.BacktestConfig{}, dailySeries(100, 101))
	assert.ErrorContains(t, err, "strategy_type")

	_, err = engine.Run(models.BacktestConfig{StrategyType: "BUTTERFLY"}, dailySeries(100, 101))
	assert.ErrorContains(t, err, "unknown strategy")

	_, err = engine.Run(models.BacktestConfig{StrategyType: models.StrategyStraddle}, nil)
	assert.ErrorContains(t, err, "at least 2 bars")

	_, err = engine.Run(models.BacktestConfig{StrategyType: models.StrategyStraddle}, dailySeries(100))
	assert.ErrorContains(t, err, "at least 2 bars")
}

func TestSimulateStrategyDay_Boundaries(t *testing.T) {
	// Exactly at the straddle threshold the position still decays.
	assert.InDelta(t, -straddleDailyDecay, simulateStrategyDay(models.StrategyStraddle, 2.0), 1e-9)
	assert.InDelta(t, 50.0, simulateStrategyDay(models.StrategyStraddle, 2.5), 1e-9)

	// Exactly at the condor wing the credit is gone.
	assert.InDelta(t, 0.0, simulateStrategyDay(models.StrategyIronCondor, 1.0), 1e-9)
	assert.InDelta(t, condorDailyCredit, simulateStrategyDay(models.StrategyIronCondor, 0.99), 1e-9)
	assert.InDelta(t, condorDailyCredit, simulateStrategyDay(models.StrategyIronCondor, -0.5), 1e-9)
}
