package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
	"ShareWise/internal/services/drift"
)

type memPublisher struct {
	mu      sync.Mutex
	signals []*models.TradingSignalResult
	alerts  []*models.DriftReport
	err     error
}

func (p *memPublisher) PublishSignal(_ context.Context, sig *models.TradingSignalResult) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	return nil
}

func (p *memPublisher) PublishAlert(_ context.Context, report *models.DriftReport) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, report)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func steadySnapshot() models.MonitoringSnapshot {
	features := make([]float64, 200)
	preds := make([]float64, 200)
	for i := range features {
		features[i] = 50 + float64(i%10)
		preds[i] = 0.5
	}
	return models.MonitoringSnapshot{
		Features:    map[string][]float64{"rsi": features},
		Predictions: preds,
		Performance: map[string]float64{"accuracy": 0.9, "f1": 0.85},
	}
}

func degradedSnapshot() models.MonitoringSnapshot {
	s := steadySnapshot()
	shifted := make([]float64, len(s.Features["rsi"]))
	for i := range shifted {
		shifted[i] = 80 + float64(i%10)
	}
	s.Features = map[string][]float64{"rsi": shifted}
	s.Performance = map[string]float64{"accuracy": 0.5, "f1": 0.45}
	return s
}

func TestEvaluateStoresAndAlertsOnDrift(t *testing.T) {
	reports := &memReportStore{}
	publisher := &memPublisher{}
	metrics := &recordingMetrics{}
	m := NewMonitoring(drift.NewDetector(drift.Config{}), reports, publisher, metrics, nil)

	report := m.Evaluate(context.Background(), "nifty-scorer", steadySnapshot(), degradedSnapshot())
	require.NotNil(t, report)
	assert.NotEqual(t, models.DriftHealthy, report.Status)

	require.Len(t, reports.drift, 1)
	require.Len(t, publisher.alerts, 1)
	assert.Same(t, report, publisher.alerts[0])

	metrics.mu.Lock()
	driftKinds := append([]string(nil), metrics.drift...)
	metrics.mu.Unlock()
	assert.ElementsMatch(t, []string{
		"nifty-scorer|data",
		"nifty-scorer|prediction",
		"nifty-scorer|performance",
	}, driftKinds)
}

func TestEvaluateHealthyStaysQuiet(t *testing.T) {
	reports := &memReportStore{}
	publisher := &memPublisher{}
	m := NewMonitoring(drift.NewDetector(drift.Config{}), reports, publisher, &recordingMetrics{}, nil)

	report := m.Evaluate(context.Background(), "nifty-scorer", steadySnapshot(), steadySnapshot())
	require.NotNil(t, report)
	assert.Equal(t, models.DriftHealthy, report.Status)

	assert.Len(t, reports.drift, 1)
	assert.Empty(t, publisher.alerts)
}

func TestEvaluateSurvivesStoreAndPublishFailures(t *testing.T) {
	reports := &memReportStore{driftErr: assert.AnError}
	publisher := &memPublisher{err: assert.AnError}
	metrics := &recordingMetrics{}
	m := NewMonitoring(drift.NewDetector(drift.Config{}), reports, publisher, metrics, nil)

	report := m.Evaluate(context.Background(), "nifty-scorer", steadySnapshot(), degradedSnapshot())
	require.NotNil(t, report)

	_, _, errs := metrics.snapshot()
	assert.Contains(t, errs, "drift_store")
	assert.Contains(t, errs, "alert_publish")
}
