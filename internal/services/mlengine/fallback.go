package mlengine

import (
	"context"

	"ShareWise/internal/domain/models"
	"ShareWise/internal/domain/repository"
	"ShareWise/internal/domain/service"
	applogger "ShareWise/pkg/logger"
)

// FallbackEngine wraps a model-backed engine with the rule-based engine as a
// degradation path. A sidecar outage downgrades signal quality, it never
// stops emission.
type FallbackEngine struct {
	primary  service.SignalEngine
	fallback service.SignalEngine
	metrics  repository.Metrics
	log      *applogger.Logger
}

// NewFallbackEngine builds the wrapper. Both engines must be non-nil.
func NewFallbackEngine(primary, fallback service.SignalEngine, metrics repository.Metrics, log *applogger.Logger) *FallbackEngine {
	return &FallbackEngine{
		primary:  primary,
		fallback: fallback,
		metrics:  metrics,
		log:      log,
	}
}

// Name reports the primary engine so emitted signals carry the engine that
// actually scored them (the fallback stamps its own name on its results).
func (e *FallbackEngine) Name() string { return e.primary.Name() }

func (e *FallbackEngine) GenerateSignal(ctx context.Context, symbol string, ind *models.IndicatorSet, entry float64) (*models.TradingSignalResult, error) {
	sig, err := e.primary.GenerateSignal(ctx, symbol, ind, entry)
	if err == nil {
		return sig, nil
	}

	if e.metrics != nil {
		e.metrics.RecordError("ml_engine")
	}
	if e.log != nil {
		e.log.Warn("model engine failed, using rule-based fallback",
			applogger.String("engine", e.primary.Name()),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}

	return e.fallback.GenerateSignal(ctx, symbol, ind, entry)
}

var _ service.SignalEngine = (*FallbackEngine)(nil)
