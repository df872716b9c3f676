package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	pkgch "ShareWise/pkg/clickhouse"
	applogger "ShareWise/pkg/logger"
)

const (
	signalTable   = "sharewise.trading_signals"
	backtestTable = "sharewise.backtest_reports"
	driftTable    = "sharewise.drift_reports"
)

// CHSignalStore persists emitted signals and serves the latest-N read path.
type CHSignalStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSignalStore(ch *pkgch.Client) *CHSignalStore {
	return &CHSignalStore{db: ch.DB()}
}

// SetLogger attaches the app logger; without one the store stays silent.
func (s *CHSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSignalStore) Insert(ctx context.Context, sig *models.TradingSignalResult) error {
	importance, err := json.Marshal(sig.FeatureImportance)
	if err != nil {
		return fmt.Errorf("marshal importance: %w", err)
	}
	const q = `INSERT INTO ` + signalTable + `
		(ts, symbol, signal_type, confidence, entry_price, target_price, stop_loss, risk_reward, engine, justification, importance_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		sig.Timestamp,
		sig.Symbol,
		string(sig.SignalType),
		sig.Confidence,
		sig.EntryPrice,
		sig.TargetPrice,
		sig.StopLoss,
		sig.RiskRewardRatio,
		sig.Engine,
		sig.Justification,
		string(importance),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_signal error",
				applogger.String("symbol", sig.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// Latest returns up to limit signals for the symbol, most recent first.
func (s *CHSignalStore) Latest(ctx context.Context, symbol string, limit int) ([]models.TradingSignalResult, error) {
	const q = `
		SELECT ts, symbol, signal_type, confidence, entry_price, target_price, stop_loss, risk_reward, engine, justification, importance_json
		FROM ` + signalTable + `
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_signals error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.TradingSignalResult, 0, limit)
	for rows.Next() {
		var (
			sig        models.TradingSignalResult
			signalType string
			importance string
		)
		if err := rows.Scan(&sig.Timestamp, &sig.Symbol, &signalType, &sig.Confidence,
			&sig.EntryPrice, &sig.TargetPrice, &sig.StopLoss, &sig.RiskRewardRatio,
			&sig.Engine, &sig.Justification, &importance); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.SignalType = models.SignalType(signalType)
		if importance != "" {
			_ = json.Unmarshal([]byte(importance), &sig.FeatureImportance)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// CHReportStore persists backtest and drift reports for audit queries.
type CHReportStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHReportStore(ch *pkgch.Client) *CHReportStore {
	return &CHReportStore{db: ch.DB()}
}

// SetLogger attaches the app logger; without one the store stays silent.
func (s *CHReportStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHReportStore) InsertBacktestReport(ctx context.Context, runID string, report *models.BacktestReport) error {
	full, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	const q = `INSERT INTO ` + backtestTable + `
		(ts, run_id, symbol, strategy, initial_capital, final_value, total_pnl, total_trades, win_rate, sharpe_ratio, max_drawdown, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		time.Now().UTC(),
		runID,
		report.Symbol,
		string(report.Strategy),
		report.InitialCapital,
		report.FinalValue,
		report.TotalPnL,
		uint32(report.TotalTrades),
		report.WinRate,
		report.SharpeRatio,
		report.MaxDrawdown,
		string(full),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_backtest error",
				applogger.String("run_id", runID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert backtest report: %w", err)
	}
	return nil
}

func (s *CHReportStore) InsertDriftReport(ctx context.Context, report *models.DriftReport) error {
	alerts, err := json.Marshal(report.Alerts)
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	const q = `INSERT INTO ` + driftTable + `
		(ts, model, data_drift, prediction_drift, performance_drift, status, alerts_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		report.Timestamp,
		report.Model,
		report.DataDrift,
		report.PredictionDrift,
		report.PerformanceDrift,
		string(report.Status),
		string(alerts),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_drift error",
				applogger.String("model", report.Model),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert drift report: %w", err)
	}
	return nil
}

var (
	_ domrepo.SignalStore = (*CHSignalStore)(nil)
	_ domrepo.ReportStore = (*CHReportStore)(nil)
)
