package models

import "time"

// DriftStatus summarizes how many drift metrics breached their thresholds.
type DriftStatus string

const (
	DriftHealthy   DriftStatus = "healthy"
	DriftAttention DriftStatus = "attention"
	DriftWarning   DriftStatus = "warning"
	DriftCritical  DriftStatus = "critical"
)

// DriftAlert records one metric exceeding a threshold.
type DriftAlert struct {
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// DriftReport compares a reference snapshot against a current one.
// Stateless per evaluation; the caller owns both snapshots.
type DriftReport struct {
	Model            string       `json:"model"`
	Timestamp        time.Time    `json:"timestamp"`
	DataDrift        float64      `json:"data_drift"`
	PredictionDrift  float64      `json:"prediction_drift"`
	PerformanceDrift float64      `json:"performance_drift"`
	Status           DriftStatus  `json:"status"`
	Alerts           []DriftAlert `json:"alerts"`
}

// MonitoringSnapshot is one side of a drift comparison: sampled feature
// distributions, raw predictions, and evaluation metrics of a deployed model.
type MonitoringSnapshot struct {
	Features    map[string][]float64 `json:"features"`
	Predictions []float64            `json:"predictions"`
	Performance map[string]float64   `json:"performance"`
}
