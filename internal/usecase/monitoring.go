package usecase

import (
	"context"
	"time"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/services/drift"
	applogger "ShareWise/pkg/logger"
)

// Monitoring evaluates model drift between snapshot pairs, records the
// report, and raises non-healthy reports on the alerts topic.
type Monitoring struct {
	detector  *drift.Detector
	reports   domrepo.ReportStore
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

func NewMonitoring(
	detector *drift.Detector,
	reports domrepo.ReportStore,
	publisher domrepo.SignalPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Monitoring {
	return &Monitoring{
		detector:  detector,
		reports:   reports,
		publisher: publisher,
		metrics:   metrics,
		l:         l,
	}
}

// Evaluate scores data, prediction, and performance drift for one model.
// Evaluation is pure; storage and alerting are side channels that never
// block the report from reaching the caller.
func (m *Monitoring) Evaluate(ctx context.Context, model string, reference, current models.MonitoringSnapshot) *models.DriftReport {
	start := time.Now()
	report := m.detector.Evaluate(model, reference, current)

	m.metrics.RecordDrift(model, "data", report.DataDrift)
	m.metrics.RecordDrift(model, "prediction", report.PredictionDrift)
	m.metrics.RecordDrift(model, "performance", report.PerformanceDrift)

	if m.reports != nil {
		if err := m.reports.InsertDriftReport(ctx, report); err != nil {
			m.metrics.RecordError("drift_store")
			if m.l != nil {
				m.l.Error("drift report store failed",
					applogger.String("model", model),
					applogger.Error(err),
				)
			}
		}
	}

	if report.Status != models.DriftHealthy && m.publisher != nil {
		if err := m.publisher.PublishAlert(ctx, report); err != nil {
			m.metrics.RecordError("alert_publish")
			if m.l != nil {
				m.l.Error("drift alert publish failed",
					applogger.String("model", model),
					applogger.String("status", string(report.Status)),
					applogger.Error(err),
				)
			}
		} else if m.l != nil {
			m.l.Warn("model drift detected",
				applogger.String("model", model),
				applogger.String("status", string(report.Status)),
				applogger.Float64("data_drift", report.DataDrift),
				applogger.Float64("prediction_drift", report.PredictionDrift),
				applogger.Float64("performance_drift", report.PerformanceDrift),
			)
		}
	}

	m.metrics.RecordLatency("drift_evaluate", time.Since(start).Seconds())
	return report
}
