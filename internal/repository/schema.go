package repository

// SchemaDDL holds the idempotent ClickHouse schema, applied at startup via
// the client wrapper's InitSchema.
var SchemaDDL = []string{
	`CREATE DATABASE IF NOT EXISTS sharewise`,

	`CREATE TABLE IF NOT EXISTS sharewise.md_candles (
		bucket DateTime,
		symbol LowCardinality(String),
		tf     LowCardinality(String),
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		vol    Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, tf, bucket)`,

	`CREATE TABLE IF NOT EXISTS sharewise.trading_signals (
		ts              DateTime,
		symbol          LowCardinality(String),
		signal_type     LowCardinality(String),
		confidence      Float64,
		entry_price     Float64,
		target_price    Float64,
		stop_loss       Float64,
		risk_reward     Float64,
		engine          LowCardinality(String),
		justification   String,
		importance_json String
	) ENGINE = MergeTree
	ORDER BY (symbol, ts)`,

	`CREATE TABLE IF NOT EXISTS sharewise.backtest_reports (
		ts              DateTime,
		run_id          String,
		symbol          LowCardinality(String),
		strategy        LowCardinality(String),
		initial_capital Float64,
		final_value     Float64,
		total_pnl       Float64,
		total_trades    UInt32,
		win_rate        Float64,
		sharpe_ratio    Float64,
		max_drawdown    Float64,
		report_json     String
	) ENGINE = MergeTree
	ORDER BY (symbol, ts)`,

	`CREATE TABLE IF NOT EXISTS sharewise.drift_reports (
		ts                DateTime,
		model             LowCardinality(String),
		data_drift        Float64,
		prediction_drift  Float64,
		performance_drift Float64,
		status            LowCardinality(String),
		alerts_json       String
	) ENGINE = MergeTree
	ORDER BY (model, ts)`,
}
