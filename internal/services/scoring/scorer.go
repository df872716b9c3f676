package scoring

import (
	"math"

	"ShareWise/internal/domain/models"
)

// Config holds the composite weights and confidence bounds of the rule
// scorer. Zero values fall back to the documented defaults.
type Config struct {
	TrendWeight      float64 // default 0.3
	MomentumWeight   float64 // default 0.25
	VolumeWeight     float64 // default 0.2
	VolatilityWeight float64 // default 0.15
	LevelWeight      float64 // default 0.1
	MinConfidence    float64 // default 0.5
	MaxConfidence    float64 // default 0.95
	TargetATRMult    float64 // default 2.0
	StopATRMult      float64 // default 1.0
}

// DefaultConfig returns the production weight set.
func DefaultConfig() Config {
	return Config{
		TrendWeight:      0.3,
		MomentumWeight:   0.25,
		VolumeWeight:     0.2,
		VolatilityWeight: 0.15,
		LevelWeight:      0.1,
		MinConfidence:    0.5,
		MaxConfidence:    0.95,
		TargetATRMult:    2.0,
		StopATRMult:      1.0,
	}
}

// Proximity thresholds for support/resistance rules, in percent of price.
const (
	nearLevelPct     = 2.0
	approachLevelPct = 5.0
	breakoutPct      = 1.0
	breakoutVolRatio = 1.3
)

// Scorer combines an indicator snapshot into sub-scores and a BUY/SELL/HOLD
// decision with confidence. Stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer, filling zero config fields with defaults.
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.TrendWeight <= 0 {
		cfg.TrendWeight = def.TrendWeight
	}
	if cfg.MomentumWeight <= 0 {
		cfg.MomentumWeight = def.MomentumWeight
	}
	if cfg.VolumeWeight <= 0 {
		cfg.VolumeWeight = def.VolumeWeight
	}
	if cfg.VolatilityWeight <= 0 {
		cfg.VolatilityWeight = def.VolatilityWeight
	}
	if cfg.LevelWeight <= 0 {
		cfg.LevelWeight = def.LevelWeight
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MaxConfidence <= 0 {
		cfg.MaxConfidence = def.MaxConfidence
	}
	if cfg.TargetATRMult <= 0 {
		cfg.TargetATRMult = def.TargetATRMult
	}
	if cfg.StopATRMult <= 0 {
		cfg.StopATRMult = def.StopATRMult
	}
	return &Scorer{cfg: cfg}
}

// GenerateSignal scores the indicator set and derives the trading decision.
// Entry is the price the risk/reward levels are anchored to, normally the
// latest close.
func (s *Scorer) GenerateSignal(ind *models.IndicatorSet, entry float64) (models.SignalType, float64, *models.SignalComponents) {
	trend, direction := s.trendScore(ind)
	momentum := s.momentumScore(ind)
	volume := s.volumeScore(ind)
	volatility := s.volatilityScore(ind)
	supportScore, resistanceScore, breakout, nearSupport, nearResistance := s.levelScores(ind)

	levelScore := math.Max(supportScore, math.Max(resistanceScore, breakout))
	technical := s.cfg.TrendWeight*math.Abs(trend) +
		s.cfg.MomentumWeight*momentum +
		s.cfg.VolumeWeight*math.Abs(volume) +
		s.cfg.VolatilityWeight*math.Abs(volatility) +
		s.cfg.LevelWeight*levelScore

	signalType := models.SignalHold
	confidence := technical
	switch {
	case direction == models.TrendBullish && momentum > 0.2 && volume > 0:
		signalType = models.SignalBuy
		confidence += 0.1
	case direction == models.TrendBearish && momentum < 0.1 && volume > 0:
		signalType = models.SignalSell
	case nearSupport && direction != models.TrendBearish:
		signalType = models.SignalBuy
	case nearResistance && direction != models.TrendBullish:
		signalType = models.SignalSell
	case breakout > 0.3:
		signalType = models.SignalBuy
		confidence += 0.15
	}
	confidence = clamp(confidence, s.cfg.MinConfidence, s.cfg.MaxConfidence)

	target, stop := s.riskLevels(signalType, entry, ind.ATR)
	ratio := riskReward(entry, target, stop)

	components := &models.SignalComponents{
		TechnicalScore:  technical,
		TrendScore:      trend,
		TrendDirection:  direction,
		MomentumScore:   momentum,
		VolumeScore:     volume,
		VolatilityScore: volatility,
		SupportScore:    supportScore,
		ResistanceScore: resistanceScore,
		BreakoutScore:   breakout,
		RiskRewardRatio: ratio,
		ConfidenceFactors: map[string]float64{
			"trend":              trend,
			"momentum":           momentum,
			"volume":             volume,
			"volatility":         volatility,
			"support_resistance": levelScore,
		},
	}
	return signalType, confidence, components
}

// trendScore aggregates moving-average and MACD alignment into [-1, 1].
func (s *Scorer) trendScore(ind *models.IndicatorSet) (float64, models.TrendDirection) {
	score := 0.0
	if ind.SMA20 > ind.SMA50 {
		score += 0.3
	} else {
		score -= 0.3
	}
	if ind.EMA12 > ind.EMA26 {
		score += 0.2
	} else {
		score -= 0.2
	}
	if ind.MACD > ind.MACDSignal && ind.MACDHistogram > 0 {
		score += 0.3
	} else if ind.MACD < ind.MACDSignal && ind.MACDHistogram < 0 {
		score -= 0.3
	}
	if ind.Close > ind.SMA20 && ind.SMA20 > ind.SMA50 {
		score += 0.2
	} else if ind.Close < ind.SMA20 && ind.SMA20 < ind.SMA50 {
		score -= 0.2
	}
	score = clamp(score, -1, 1)

	direction := models.TrendNeutral
	if score > 0.3 {
		direction = models.TrendBullish
	} else if score < -0.3 {
		direction = models.TrendBearish
	}
	return score, direction
}

// momentumScore aggregates oscillator readings into [0, 1].
func (s *Scorer) momentumScore(ind *models.IndicatorSet) float64 {
	m := 0.0
	switch {
	case ind.RSI > 70:
		m -= 0.2
	case ind.RSI < 30:
		m += 0.3
	default:
		m += 0.1
	}
	switch {
	case ind.WilliamsR > -20:
		m -= 0.2
	case ind.WilliamsR < -80:
		m += 0.2
	default:
		m += 0.1
	}
	switch {
	case ind.StochasticK > 80:
		m -= 0.1
	case ind.StochasticK < 20:
		m += 0.2
	default:
		m += 0.1
	}
	if ind.MACDHistogram > 0 {
		m += 0.1
	}
	return clamp(m, 0, 1)
}

func (s *Scorer) volumeScore(ind *models.IndicatorSet) float64 {
	switch {
	case ind.VolumeRatio > 1.5:
		return 0.3
	case ind.VolumeRatio > 1.2:
		return 0.2
	case ind.VolumeRatio > 0.8:
		return 0.1
	default:
		return -0.1
	}
}

// volatilityScore rewards a tradable volatility regime and penalizes
// extremes. Band volatility and ATR are expressed in percent of price.
func (s *Scorer) volatilityScore(ind *models.IndicatorSet) float64 {
	bandVol := 0.0
	if ind.BollingerMiddle != 0 {
		bandVol = (ind.BollingerUpper - ind.BollingerLower) / ind.BollingerMiddle * 100
	}
	atrPct := 0.0
	if ind.Close != 0 {
		atrPct = ind.ATR / ind.Close * 100
	}

	switch {
	case bandVol > 1 && bandVol < 3 && atrPct > 1 && atrPct < 4:
		return 0.2
	case bandVol > 5 || atrPct > 6:
		return -0.2
	default:
		return 0.1
	}
}

// levelScores measures proximity to support and resistance in percent of
// price and flags breakout potential on tight resistance with volume.
func (s *Scorer) levelScores(ind *models.IndicatorSet) (supportScore, resistanceScore, breakout float64, nearSupport, nearResistance bool) {
	if ind.Close <= 0 {
		return 0, 0, 0, false, false
	}
	supportDist := (ind.Close - ind.Support) / ind.Close * 100
	resistanceDist := (ind.Resistance - ind.Close) / ind.Close * 100

	if supportDist >= 0 {
		switch {
		case supportDist < nearLevelPct:
			supportScore = 0.3
			nearSupport = true
		case supportDist < approachLevelPct:
			supportScore = 0.1
		}
	}
	if resistanceDist >= 0 {
		switch {
		case resistanceDist < nearLevelPct:
			resistanceScore = -0.2
			nearResistance = true
		case resistanceDist < approachLevelPct:
			resistanceScore = -0.1
		}
		if resistanceDist < breakoutPct && ind.VolumeRatio > breakoutVolRatio {
			breakout = 0.4
		}
	}
	return supportScore, resistanceScore, breakout, nearSupport, nearResistance
}

// riskLevels anchors target and stop to the entry using ATR multiples,
// direction-aware.
func (s *Scorer) riskLevels(signalType models.SignalType, entry, atr float64) (target, stop float64) {
	switch signalType {
	case models.SignalSell, models.SignalShort:
		return entry - s.cfg.TargetATRMult*atr, entry + s.cfg.StopATRMult*atr
	default:
		return entry + s.cfg.TargetATRMult*atr, entry - s.cfg.StopATRMult*atr
	}
}

func riskReward(entry, target, stop float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
