package models

import "time"

// SignalType is the trading action a signal recommends.
type SignalType string

const (
	SignalBuy   SignalType = "BUY"
	SignalSell  SignalType = "SELL"
	SignalHold  SignalType = "HOLD"
	SignalShort SignalType = "SHORT"
	SignalCover SignalType = "COVER"
)

// TrendDirection labels the aggregate trend sub-score.
type TrendDirection string

const (
	TrendBullish TrendDirection = "BULLISH"
	TrendBearish TrendDirection = "BEARISH"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// SignalComponents carries the sub-scores a signal decision was built from.
type SignalComponents struct {
	TechnicalScore    float64            `json:"technical_score"`
	TrendScore        float64            `json:"trend_score"`
	TrendDirection    TrendDirection     `json:"trend_direction"`
	MomentumScore     float64            `json:"momentum_score"`
	VolumeScore       float64            `json:"volume_score"`
	VolatilityScore   float64            `json:"volatility_score"`
	SupportScore      float64            `json:"support_score"`
	ResistanceScore   float64            `json:"resistance_score"`
	BreakoutScore     float64            `json:"breakout_score"`
	RiskRewardRatio   float64            `json:"risk_reward_ratio"`
	ConfidenceFactors map[string]float64 `json:"confidence_factors"`
}

// TradingSignalResult is the terminal output of the scoring and explanation
// pipeline. Created once, never mutated.
type TradingSignalResult struct {
	Symbol            string             `json:"symbol"`
	Timestamp         time.Time          `json:"timestamp"`
	SignalType        SignalType         `json:"signal_type"`
	Confidence        float64            `json:"confidence"`
	EntryPrice        float64            `json:"entry_price"`
	TargetPrice       float64            `json:"target_price"`
	StopLoss          float64            `json:"stop_loss"`
	RiskRewardRatio   float64            `json:"risk_reward_ratio"`
	Justification     string             `json:"justification"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Components        *SignalComponents  `json:"components,omitempty"`
	Engine            string             `json:"engine"`
}

// RankedFactor is one explanation factor ordered by absolute importance.
type RankedFactor struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
	Value      float64 `json:"value"`
	Direction  string  `json:"direction"`
}

// Explanation is the human-readable justification attached to a signal.
type Explanation struct {
	Justification string         `json:"justification"`
	Factors       []RankedFactor `json:"factors"`
}
