package mlengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"ShareWise/internal/domain/models"
	"ShareWise/internal/domain/service"
	"ShareWise/pkg/config"
)

// Default ATR multiples used when the serving side returns no price levels.
const (
	defaultTargetATRMult = 2.0
	defaultStopATRMult   = 1.0
)

// HTTPEngine scores signals against the model-serving sidecar. One instance
// per configured variant; the variants differ only in the predict path the
// sidecar exposes.
type HTTPEngine struct {
	kind      service.EngineKind
	path      string
	base      *serviceBase
	explainer service.Explainer
}

// NewEnsembleEngine builds the gradient-boosted ensemble adapter.
func NewEnsembleEngine(cfg *config.Config, explainer service.Explainer) *HTTPEngine {
	return newHTTPEngine(cfg, service.EngineEnsemble, "/ensemble/predict", explainer)
}

// NewDeepLearningEngine builds the sequence-model adapter.
func NewDeepLearningEngine(cfg *config.Config, explainer service.Explainer) *HTTPEngine {
	return newHTTPEngine(cfg, service.EngineDeepLearning, "/deep/predict", explainer)
}

// NewAutoMLEngine builds the AutoML-selected-model adapter.
func NewAutoMLEngine(cfg *config.Config, explainer service.Explainer) *HTTPEngine {
	return newHTTPEngine(cfg, service.EngineAutoML, "/automl/predict", explainer)
}

func newHTTPEngine(cfg *config.Config, kind service.EngineKind, path string, explainer service.Explainer) *HTTPEngine {
	return &HTTPEngine{
		kind:      kind,
		path:      path,
		base:      newServiceBase(cfg),
		explainer: explainer,
	}
}

func (e *HTTPEngine) Name() string { return string(e.kind) }

type predictReq struct {
	Symbol   string             `json:"symbol"`
	Entry    float64            `json:"entry_price"`
	Features map[string]float64 `json:"features"`
}

type predictResp struct {
	Signal            string             `json:"signal"`
	Confidence        float64            `json:"confidence"`
	TargetPrice       float64            `json:"target_price"`
	StopLoss          float64            `json:"stop_loss"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// GenerateSignal posts the indicator snapshot and decodes the scored signal.
// The explanation is always rebuilt locally so justifications stay uniform
// across engines.
func (e *HTTPEngine) GenerateSignal(ctx context.Context, symbol string, ind *models.IndicatorSet, entry float64) (*models.TradingSignalResult, error) {
	features := ind.AsMap()

	var pr predictResp
	req := predictReq{Symbol: symbol, Entry: entry, Features: features}
	if err := e.base.postJSONWithRetry(ctx, e.path, req, &pr, e.base.retries); err != nil {
		return nil, fmt.Errorf("%s predict: %w", e.kind, err)
	}

	signalType := models.SignalType(pr.Signal)
	switch signalType {
	case models.SignalBuy, models.SignalSell, models.SignalHold, models.SignalShort, models.SignalCover:
	default:
		return nil, fmt.Errorf("%s predict: unknown signal %q", e.kind, pr.Signal)
	}

	target, stop := pr.TargetPrice, pr.StopLoss
	if target == 0 || stop == 0 {
		target, stop = riskLevels(signalType, entry, ind.ATR)
	}

	explanation := e.explainer.Explain(features, pr.FeatureImportance, signalType, pr.Confidence)

	return &models.TradingSignalResult{
		Symbol:            symbol,
		Timestamp:         time.Now().UTC(),
		SignalType:        signalType,
		Confidence:        pr.Confidence,
		EntryPrice:        entry,
		TargetPrice:       target,
		StopLoss:          stop,
		RiskRewardRatio:   riskReward(entry, target, stop),
		Justification:     explanation.Justification,
		FeatureImportance: pr.FeatureImportance,
		Engine:            e.Name(),
	}, nil
}

// riskLevels derives default levels from ATR. COVER closes a short, so it
// shares the upward-target default with BUY.
func riskLevels(signalType models.SignalType, entry, atr float64) (target, stop float64) {
	switch signalType {
	case models.SignalSell, models.SignalShort:
		return entry - defaultTargetATRMult*atr, entry + defaultStopATRMult*atr
	default:
		return entry + defaultTargetATRMult*atr, entry - defaultStopATRMult*atr
	}
}

func riskReward(entry, target, stop float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

var _ service.SignalEngine = (*HTTPEngine)(nil)
