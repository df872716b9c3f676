package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
)

// neutralSet is a baseline snapshot the cases below mutate.
func neutralSet() *models.IndicatorSet {
	return &models.IndicatorSet{
		Close:           100,
		Volume:          1000,
		SMA10:           100,
		SMA20:           100,
		SMA50:           100,
		EMA12:           100,
		EMA26:           100,
		RSI:             50,
		WilliamsR:       -50,
		StochasticK:     50,
		StochasticD:     50,
		BollingerUpper:  101,
		BollingerMiddle: 100,
		BollingerLower:  99,
		ATR:             1.5,
		Support:         90,
		Resistance:      120,
		VolumeRatio:     1.0,
	}
}

func TestGenerateSignal_BullishMomentumScenario(t *testing.T) {
	// RSI oversold, MACD above signal, price above both SMAs, strong volume.
	ind := &models.IndicatorSet{
		Close:           105,
		SMA20:           100,
		SMA50:           95,
		EMA12:           101,
		EMA26:           99,
		MACD:            2,
		MACDSignal:      1,
		MACDHistogram:   1,
		RSI:             25,
		WilliamsR:       -85,
		StochasticK:     15,
		BollingerUpper:  101,
		BollingerMiddle: 100,
		BollingerLower:  99,
		ATR:             2,
		Support:         90,
		Resistance:      120,
		VolumeRatio:     1.6,
	}
	s := NewScorer(Config{})
	signalType, confidence, components := s.GenerateSignal(ind, ind.Close)

	assert.Equal(t, models.SignalBuy, signalType)
	assert.GreaterOrEqual(t, confidence, 0.6)
	// trend 1.0, momentum 0.8, volume 0.3, volatility 0.2, levels 0:
	// 0.3 + 0.2 + 0.06 + 0.03 = 0.59, +0.1 decision bump.
	assert.InDelta(t, 0.69, confidence, 1e-9)
	assert.Equal(t, models.TrendBullish, components.TrendDirection)
	assert.InDelta(t, 1.0, components.TrendScore, 1e-9)
	assert.InDelta(t, 0.8, components.MomentumScore, 1e-9)
	assert.InDelta(t, 0.59, components.TechnicalScore, 1e-9)
	assert.InDelta(t, 2.0, components.RiskRewardRatio, 1e-9)
}

func TestGenerateSignal_BearishExhaustionIsSell(t *testing.T) {
	ind := neutralSet()
	ind.Close = 90
	ind.SMA20 = 95
	ind.SMA50 = 100
	ind.EMA12 = 94
	ind.EMA26 = 96
	ind.MACD = -2
	ind.MACDSignal = -1
	ind.MACDHistogram = -1
	ind.RSI = 75
	ind.WilliamsR = -10
	ind.StochasticK = 85
	ind.VolumeRatio = 1.3
	ind.Support = 70
	ind.Resistance = 120

	s := NewScorer(Config{})
	signalType, confidence, components := s.GenerateSignal(ind, ind.Close)

	assert.Equal(t, models.SignalSell, signalType)
	assert.Equal(t, models.TrendBearish, components.TrendDirection)
	assert.InDelta(t, 0.0, components.MomentumScore, 1e-9)
	assert.GreaterOrEqual(t, confidence, 0.5)

	// Sell levels point down: target below entry, stop above.
	sig := buildResult(t, s, ind)
	assert.Less(t, sig.TargetPrice, sig.EntryPrice)
	assert.Greater(t, sig.StopLoss, sig.EntryPrice)
}

func TestGenerateSignal_NearSupportBuysWithoutBearishTrend(t *testing.T) {
	ind := neutralSet()
	ind.SMA20 = 101  // keeps the trend out of the bearish band
	ind.Support = 99 // 1% below price
	ind.Resistance = 130

	s := NewScorer(Config{})
	signalType, _, components := s.GenerateSignal(ind, ind.Close)

	assert.Equal(t, models.SignalBuy, signalType)
	assert.InDelta(t, 0.3, components.SupportScore, 1e-9)
	assert.NotEqual(t, models.TrendBearish, components.TrendDirection)
}

func TestGenerateSignal_NearResistanceSellsWithoutBullishTrend(t *testing.T) {
	ind := neutralSet()
	ind.SMA20 = 101 // neutral trend
	ind.Support = 80
	ind.Resistance = 101.5 // 1.5% above price

	s := NewScorer(Config{})
	signalType, _, components := s.GenerateSignal(ind, ind.Close)

	assert.Equal(t, models.SignalSell, signalType)
	assert.InDelta(t, -0.2, components.ResistanceScore, 1e-9)
}

func TestGenerateSignal_BreakoutBuyWhenTrendAlreadyBullish(t *testing.T) {
	// Bullish trend with weak momentum skips the momentum entry, then the
	// tight resistance plus volume triggers the breakout branch.
	ind := &models.IndicatorSet{
		Close:           100,
		SMA20:           98,
		SMA50:           95,
		EMA12:           99,
		EMA26:           97,
		MACD:            1,
		MACDSignal:      0.5,
		MACDHistogram:   0.5,
		RSI:             75, // overbought drags momentum to 0.1
		WilliamsR:       -50,
		StochasticK:     50,
		BollingerUpper:  100.4,
		BollingerMiddle: 100,
		BollingerLower:  99.6,
		ATR:             0.5,
		Support:         80,
		Resistance:      100.5, // 0.5% above
		VolumeRatio:     1.4,
	}
	s := NewScorer(Config{})
	signalType, confidence, components := s.GenerateSignal(ind, ind.Close)

	assert.Equal(t, models.SignalBuy, signalType)
	assert.InDelta(t, 0.4, components.BreakoutScore, 1e-9)
	assert.InDelta(t, 0.1, components.MomentumScore, 1e-9)
	assert.GreaterOrEqual(t, confidence, 0.5)
}

func TestGenerateSignal_NeutralIsHold(t *testing.T) {
	s := NewScorer(Config{})
	signalType, confidence, _ := s.GenerateSignal(neutralSet(), 100)

	assert.Equal(t, models.SignalHold, signalType)
	assert.GreaterOrEqual(t, confidence, 0.5)
	assert.LessOrEqual(t, confidence, 0.95)
}

func TestGenerateSignal_ConfidenceAlwaysBounded(t *testing.T) {
	s := NewScorer(Config{})
	sets := []*models.IndicatorSet{neutralSet()}

	extreme := neutralSet()
	extreme.SMA20, extreme.SMA50 = 120, 80
	extreme.EMA12, extreme.EMA26 = 118, 90
	extreme.MACD, extreme.MACDSignal, extreme.MACDHistogram = 5, 1, 4
	extreme.Close = 125
	extreme.RSI = 20
	extreme.WilliamsR = -90
	extreme.StochasticK = 10
	extreme.VolumeRatio = 3
	sets = append(sets, extreme)

	crash := neutralSet()
	crash.SMA20, crash.SMA50 = 80, 120
	crash.EMA12, crash.EMA26 = 82, 110
	crash.MACD, crash.MACDSignal, crash.MACDHistogram = -5, -1, -4
	crash.Close = 70
	crash.RSI = 85
	crash.WilliamsR = -5
	crash.StochasticK = 95
	crash.VolumeRatio = 0.4
	sets = append(sets, crash)

	for _, ind := range sets {
		_, confidence, _ := s.GenerateSignal(ind, ind.Close)
		assert.GreaterOrEqual(t, confidence, 0.5)
		assert.LessOrEqual(t, confidence, 0.95)
	}
}

func TestGenerateSignal_Idempotent(t *testing.T) {
	s := NewScorer(Config{})
	ind := neutralSet()
	ind.RSI = 28
	ind.VolumeRatio = 1.25

	t1, c1, comp1 := s.GenerateSignal(ind, 100)
	t2, c2, comp2 := s.GenerateSignal(ind, 100)
	assert.Equal(t, t1, t2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, comp1, comp2)
}

func TestMomentumScore_ClampedToZeroWhenOverbought(t *testing.T) {
	ind := neutralSet()
	ind.RSI = 85
	ind.WilliamsR = -5
	ind.StochasticK = 95
	s := NewScorer(Config{})
	assert.InDelta(t, 0.0, s.momentumScore(ind), 1e-9)
}

func TestVolumeScore_Tiers(t *testing.T) {
	s := NewScorer(Config{})
	ind := neutralSet()

	ind.VolumeRatio = 1.6
	assert.InDelta(t, 0.3, s.volumeScore(ind), 1e-9)
	ind.VolumeRatio = 1.3
	assert.InDelta(t, 0.2, s.volumeScore(ind), 1e-9)
	ind.VolumeRatio = 1.0
	assert.InDelta(t, 0.1, s.volumeScore(ind), 1e-9)
	ind.VolumeRatio = 0.5
	assert.InDelta(t, -0.1, s.volumeScore(ind), 1e-9)
}

func TestRiskLevels_BuyAndSellAreMirrored(t *testing.T) {
	s := NewScorer(Config{})
	target, stop := s.riskLevels(models.SignalBuy, 100, 2)
	assert.InDelta(t, 104.0, target, 1e-9)
	assert.InDelta(t, 98.0, stop, 1e-9)

	target, stop = s.riskLevels(models.SignalSell, 100, 2)
	assert.InDelta(t, 96.0, target, 1e-9)
	assert.InDelta(t, 102.0, stop, 1e-9)
}

func TestRiskReward_ZeroATR(t *testing.T) {
	s := NewScorer(Config{})
	ind := neutralSet()
	ind.ATR = 0
	_, _, components := s.GenerateSignal(ind, 100)
	assert.InDelta(t, 0.0, components.RiskRewardRatio, 1e-9)
}

type stubExplainer struct{}

func (stubExplainer) Explain(_, _ map[string]float64, _ models.SignalType, _ float64) models.Explanation {
	return models.Explanation{Justification: "stub"}
}

func buildResult(t *testing.T, s *Scorer, ind *models.IndicatorSet) *models.TradingSignalResult {
	t.Helper()
	engine := NewTraditionalEngine(s, stubExplainer{})
	sig, err := engine.GenerateSignal(context.Background(), "TEST", ind, ind.Close)
	require.NoError(t, err)
	return sig
}

func TestTraditionalEngine_PopulatesResult(t *testing.T) {
	s := NewScorer(Config{})
	ind := neutralSet()
	ind.SMA50 = 95
	ind.EMA26 = 98
	ind.RSI = 28

	sig := buildResult(t, s, ind)
	assert.Equal(t, "TEST", sig.Symbol)
	assert.Equal(t, "traditional", sig.Engine)
	assert.Equal(t, "stub", sig.Justification)
	assert.NotEmpty(t, sig.FeatureImportance)
	assert.NotNil(t, sig.Components)
	assert.InDelta(t, 100.0, sig.EntryPrice, 1e-9)
}
