package service

import (
	"context"

	"ShareWise/internal/domain/models"
)

// EngineKind selects a signal engine variant at configuration time.
// A kind whose backend is not configured is a wiring error, never a
// runtime capability probe.
type EngineKind string

const (
	EngineTraditional  EngineKind = "traditional"
	EngineEnsemble     EngineKind = "ensemble"
	EngineDeepLearning EngineKind = "deep_learning"
	EngineAutoML       EngineKind = "automl"
)

// IsValidEngineKind reports whether k names a known variant.
func IsValidEngineKind(k EngineKind) bool {
	switch k {
	case EngineTraditional, EngineEnsemble, EngineDeepLearning, EngineAutoML:
		return true
	default:
		return false
	}
}

// SignalEngine turns an indicator snapshot into a scored trading signal.
// Implementations are stateless per call and safe for concurrent use.
type SignalEngine interface {
	Name() string
	GenerateSignal(ctx context.Context, symbol string, ind *models.IndicatorSet, entry float64) (*models.TradingSignalResult, error)
}

// Explainer produces the deterministic human-readable justification for a
// signal. It is total: attribution failure degrades to a template built from
// confidence factors, never an error that blocks emission.
type Explainer interface {
	Explain(featureValues, importances map[string]float64, signalType models.SignalType, confidence float64) models.Explanation
}
