package repository

import (
	"context"

	"ShareWise/internal/domain/models"
)

// SignalStore persists emitted trading signals and serves recent history.
type SignalStore interface {
	Insert(ctx context.Context, sig *models.TradingSignalResult) error
	Latest(ctx context.Context, symbol string, limit int) ([]models.TradingSignalResult, error)
}

// ReportStore persists backtest and drift monitoring output for audit.
type ReportStore interface {
	InsertBacktestReport(ctx context.Context, runID string, report *models.BacktestReport) error
	InsertDriftReport(ctx context.Context, report *models.DriftReport) error
}

// SignalPublisher emits signals and monitoring alerts onto the event bus.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig *models.TradingSignalResult) error
	PublishAlert(ctx context.Context, report *models.DriftReport) error
	Close() error
}

// Metrics abstracts the pipeline's operational counters.
type Metrics interface {
	RecordSignal(symbol, signalType string)
	RecordDropped(symbol, reason string)
	RecordConfidence(symbol string, confidence float64)
	RecordDrift(model, kind string, value float64)
	RecordSignalTime(symbol string, unixSeconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
