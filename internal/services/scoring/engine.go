package scoring

import (
	"context"
	"time"

	"ShareWise/internal/domain/models"
	"ShareWise/internal/domain/service"
)

// TraditionalEngine is the in-process rule-based signal engine: indicator
// scoring plus deterministic explanation, no model backend.
type TraditionalEngine struct {
	scorer    *Scorer
	explainer service.Explainer
}

// NewTraditionalEngine builds the rule-based engine.
func NewTraditionalEngine(scorer *Scorer, explainer service.Explainer) *TraditionalEngine {
	return &TraditionalEngine{scorer: scorer, explainer: explainer}
}

func (e *TraditionalEngine) Name() string { return string(service.EngineTraditional) }

// GenerateSignal scores the snapshot, attaches the explanation, and returns
// the immutable result. Feature importance for the rule engine is its own
// confidence-factor set.
func (e *TraditionalEngine) GenerateSignal(_ context.Context, symbol string, ind *models.IndicatorSet, entry float64) (*models.TradingSignalResult, error) {
	signalType, confidence, components := e.scorer.GenerateSignal(ind, entry)

	importance := make(map[string]float64, len(components.ConfidenceFactors))
	for name, v := range components.ConfidenceFactors {
		importance[name] = v
	}

	explanation := e.explainer.Explain(ind.AsMap(), importance, signalType, confidence)
	target, stop := e.scorer.riskLevels(signalType, entry, ind.ATR)

	return &models.TradingSignalResult{
		Symbol:            symbol,
		Timestamp:         time.Now().UTC(),
		SignalType:        signalType,
		Confidence:        confidence,
		EntryPrice:        entry,
		TargetPrice:       target,
		StopLoss:          stop,
		RiskRewardRatio:   components.RiskRewardRatio,
		Justification:     explanation.Justification,
		FeatureImportance: importance,
		Components:        components,
		Engine:            e.Name(),
	}, nil
}

var _ service.SignalEngine = (*TraditionalEngine)(nil)
