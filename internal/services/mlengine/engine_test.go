package mlengine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
	"ShareWise/internal/domain/service"
	"ShareWise/internal/services/explain"
	"ShareWise/pkg/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Analytics.BaseURL = baseURL
	cfg.Analytics.Timeout = 2 * time.Second
	cfg.Analytics.Retries = 1
	return cfg
}

func testIndicators() *models.IndicatorSet {
	return &models.IndicatorSet{
		Close:       21500,
		RSI:         62,
		ATR:         120,
		RealizedVol: 0.18,
		Support:     21200,
		Resistance:  21900,
		VolumeRatio: 1.4,
	}
}

func TestEnsembleEngineDecodesPrediction(t *testing.T) {
	var gotReq predictReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ensemble/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(predictResp{
			Signal:      "BUY",
			Confidence:  0.82,
			TargetPrice: 21800,
			StopLoss:    21350,
			FeatureImportance: map[string]float64{
				"rsi": 0.5, "trend": 0.3,
			},
		})
	}))
	defer srv.Close()

	eng := NewEnsembleEngine(testConfig(srv.URL), explain.NewExplainer())
	sig, err := eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
	require.NoError(t, err)

	assert.Equal(t, "ensemble", eng.Name())
	assert.Equal(t, "ensemble", sig.Engine)
	assert.Equal(t, "NIFTY", sig.Symbol)
	assert.Equal(t, models.SignalBuy, sig.SignalType)
	assert.InDelta(t, 0.82, sig.Confidence, 1e-12)
	assert.InDelta(t, 21800, sig.TargetPrice, 1e-9)
	assert.InDelta(t, 21350, sig.StopLoss, 1e-9)
	assert.InDelta(t, 2.0, sig.RiskRewardRatio, 1e-9)
	assert.NotEmpty(t, sig.Justification)

	assert.Equal(t, "NIFTY", gotReq.Symbol)
	assert.InDelta(t, 21500, gotReq.Entry, 1e-9)
	assert.InDelta(t, 62, gotReq.Features["rsi"], 1e-12)
	assert.InDelta(t, 0.18, gotReq.Features["realized_vol"], 1e-12)
}

func TestVariantsHitTheirOwnPaths(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		_ = json.NewEncoder(w).Encode(predictResp{Signal: "HOLD", Confidence: 0.5})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	exp := explain.NewExplainer()

	cases := []struct {
		eng  service.SignalEngine
		path string
		name string
	}{
		{NewEnsembleEngine(cfg, exp), "/ensemble/predict", "ensemble"},
		{NewDeepLearningEngine(cfg, exp), "/deep/predict", "deep_learning"},
		{NewAutoMLEngine(cfg, exp), "/automl/predict", "automl"},
	}
	for _, tc := range cases {
		_, err := tc.eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
		require.NoError(t, err)
		assert.Equal(t, tc.path, path.Load())
		assert.Equal(t, tc.name, tc.eng.Name())
	}
}

func TestDerivesRiskLevelsWhenModelOmitsThem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResp{Signal: "SELL", Confidence: 0.7})
	}))
	defer srv.Close()

	eng := NewEnsembleEngine(testConfig(srv.URL), explain.NewExplainer())
	sig, err := eng.GenerateSignal(context.Background(), "BANKNIFTY", testIndicators(), 21500)
	require.NoError(t, err)

	// SELL: target below entry by 2*ATR, stop above by 1*ATR.
	assert.InDelta(t, 21500-2*120, sig.TargetPrice, 1e-9)
	assert.InDelta(t, 21500+120, sig.StopLoss, 1e-9)
}

func TestAcceptsCoverPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResp{Signal: "COVER", Confidence: 0.66})
	}))
	defer srv.Close()

	eng := NewEnsembleEngine(testConfig(srv.URL), explain.NewExplainer())
	sig, err := eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
	require.NoError(t, err)

	assert.Equal(t, models.SignalCover, sig.SignalType)
	// COVER buys the short back, so the derived levels point upward.
	assert.InDelta(t, 21500+2*120, sig.TargetPrice, 1e-9)
	assert.InDelta(t, 21500-120, sig.StopLoss, 1e-9)
}

func TestRejectsUnknownSignalKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResp{Signal: "MAYBE", Confidence: 0.9})
	}))
	defer srv.Close()

	eng := NewAutoMLEngine(testConfig(srv.URL), explain.NewExplainer())
	_, err := eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown signal")
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(predictResp{Signal: "BUY", Confidence: 0.75})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Analytics.Retries = 3
	eng := NewEnsembleEngine(cfg, explain.NewExplainer())

	sig, err := eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, sig.SignalType)
	assert.EqualValues(t, 3, calls.Load())
}

type stubEngine struct {
	name string
	sig  *models.TradingSignalResult
	err  error
}

func (s *stubEngine) Name() string { return s.name }
func (s *stubEngine) GenerateSignal(context.Context, string, *models.IndicatorSet, float64) (*models.TradingSignalResult, error) {
	return s.sig, s.err
}

type recordingMetrics struct {
	errors []string
}

func (m *recordingMetrics) RecordSignal(string, string)         {}
func (m *recordingMetrics) RecordDropped(string, string)        {}
func (m *recordingMetrics) RecordConfidence(string, float64)    {}
func (m *recordingMetrics) RecordDrift(string, string, float64) {}
func (m *recordingMetrics) RecordSignalTime(string, float64)    {}
func (m *recordingMetrics) RecordError(kind string)             { m.errors = append(m.errors, kind) }
func (m *recordingMetrics) RecordLatency(string, float64)       {}

func TestFallbackUsesRuleEngineOnModelFailure(t *testing.T) {
	ruleSig := &models.TradingSignalResult{Symbol: "NIFTY", SignalType: models.SignalBuy, Engine: "traditional"}
	primary := &stubEngine{name: "ensemble", err: errors.New("connection refused")}
	fallback := &stubEngine{name: "traditional", sig: ruleSig}
	metrics := &recordingMetrics{}

	eng := NewFallbackEngine(primary, fallback, metrics, nil)
	sig, err := eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
	require.NoError(t, err)

	assert.Same(t, ruleSig, sig)
	assert.Equal(t, "ensemble", eng.Name())
	assert.Equal(t, []string{"ml_engine"}, metrics.errors)
}

func TestFallbackPassesThroughPrimarySuccess(t *testing.T) {
	mlSig := &models.TradingSignalResult{Symbol: "NIFTY", SignalType: models.SignalSell, Engine: "ensemble"}
	primary := &stubEngine{name: "ensemble", sig: mlSig}
	fallback := &stubEngine{name: "traditional", sig: &models.TradingSignalResult{}}
	metrics := &recordingMetrics{}

	eng := NewFallbackEngine(primary, fallback, metrics, nil)
	sig, err := eng.GenerateSignal(context.Background(), "NIFTY", testIndicators(), 21500)
	require.NoError(t, err)

	assert.Same(t, mlSig, sig)
	assert.Empty(t, metrics.errors)
}
