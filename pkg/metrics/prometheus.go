package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the Prometheus-backed implementation of the pipeline's
// Metrics interface. Collectors register on first construction, so the
// process builds exactly one Recorder.
type Recorder struct {
	signalsTotal  *prometheus.CounterVec
	droppedTotal  *prometheus.CounterVec
	confidence    *prometheus.HistogramVec
	driftGauge    *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	lastSignalAge *prometheus.GaugeVec
}

// New registers the sharewise metric families on the default registry.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharewise_signals_total",
				Help: "Total number of trading signals generated",
			},
			[]string{"symbol", "type"},
		),
		droppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharewise_signals_dropped_total",
				Help: "Signals dropped before publishing (low confidence, throttled, invalid)",
			},
			[]string{"symbol", "reason"},
		),
		confidence: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharewise_signal_confidence",
				Help:    "Confidence distribution of generated signals",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"symbol"},
		),
		driftGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sharewise_model_drift",
				Help: "Latest drift measure per model (data PSI, prediction shift, performance delta)",
			},
			[]string{"model", "kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharewise_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharewise_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastSignalAge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sharewise_last_signal_unix_seconds",
				Help: "Unix time of the most recent signal per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordSignal records a generated signal.
func (r *Recorder) RecordSignal(symbol, signalType string) {
	r.signalsTotal.WithLabelValues(symbol, signalType).Inc()
}

// RecordDropped records a signal dropped before publishing.
func (r *Recorder) RecordDropped(symbol, reason string) {
	r.droppedTotal.WithLabelValues(symbol, reason).Inc()
}

// RecordConfidence records the confidence of a generated signal.
func (r *Recorder) RecordConfidence(symbol string, confidence float64) {
	r.confidence.WithLabelValues(symbol).Observe(confidence)
}

// RecordDrift records the latest drift measure for a model.
func (r *Recorder) RecordDrift(model, kind string, value float64) {
	r.driftGauge.WithLabelValues(model, kind).Set(value)
}

// RecordError counts an error under its kind label.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency observes one timed operation, in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSignalTime marks the wall-clock time of the latest signal for a symbol.
func (r *Recorder) RecordSignalTime(symbol string, unixSeconds float64) {
	r.lastSignalAge.WithLabelValues(symbol).Set(unixSeconds)
}
