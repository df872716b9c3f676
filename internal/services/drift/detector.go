package drift

import (
	"math"
	"sort"
	"time"

	"ShareWise/internal/domain/models"
)

// densityFloor keeps PSI's log terms finite when a bin is empty on one side.
const densityFloor = 1e-10

// performanceKeys are the evaluation metrics compared for performance drift.
var performanceKeys = []string{"accuracy", "precision", "recall", "f1"}

// Config carries the alert thresholds and binning limit. The zero value is
// replaced with the documented defaults.
type Config struct {
	MaxBins int `yaml:"max_bins" default:"10"`

	DataBase        float64 `yaml:"data_base" default:"0.1"`
	DataHigh        float64 `yaml:"data_high" default:"0.2"`
	PredictionBase  float64 `yaml:"prediction_base" default:"0.15"`
	PredictionHigh  float64 `yaml:"prediction_high" default:"0.3"`
	PerformanceBase float64 `yaml:"performance_base" default:"0.1"`
	PerformanceHigh float64 `yaml:"performance_high" default:"0.2"`
}

// DefaultConfig returns the documented thresholds.
func DefaultConfig() Config {
	return Config{
		MaxBins:         10,
		DataBase:        0.1,
		DataHigh:        0.2,
		PredictionBase:  0.15,
		PredictionHigh:  0.3,
		PerformanceBase: 0.1,
		PerformanceHigh: 0.2,
	}
}

// Detector compares reference and current model snapshots. All methods are
// total: degenerate inputs read as zero drift rather than failing, so
// monitoring never takes the serving path down.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector, filling zero config fields with defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MaxBins <= 0 {
		cfg.MaxBins = def.MaxBins
	}
	if cfg.DataBase == 0 {
		cfg.DataBase = def.DataBase
	}
	if cfg.DataHigh == 0 {
		cfg.DataHigh = def.DataHigh
	}
	if cfg.PredictionBase == 0 {
		cfg.PredictionBase = def.PredictionBase
	}
	if cfg.PredictionHigh == 0 {
		cfg.PredictionHigh = def.PredictionHigh
	}
	if cfg.PerformanceBase == 0 {
		cfg.PerformanceBase = def.PerformanceBase
	}
	if cfg.PerformanceHigh == 0 {
		cfg.PerformanceHigh = def.PerformanceHigh
	}
	return &Detector{cfg: cfg}
}

// DataDrift computes the Population Stability Index between a reference
// feature distribution and the current one. Bins come from reference
// percentiles (at most MaxBins, duplicate edges collapsed), out-of-range
// current values land in the edge bins, and identical distributions yield 0.
func (d *Detector) DataDrift(reference, current []float64) float64 {
	if len(reference) == 0 || len(current) == 0 {
		return 0
	}

	edges := percentileEdges(reference, d.cfg.MaxBins)
	if len(edges) < 2 {
		// Constant reference collapses to a single bin holding everything.
		return 0
	}

	refDensity := binDensities(reference, edges)
	curDensity := binDensities(current, edges)

	psi := 0.0
	for i := range refDensity {
		r := math.Max(refDensity[i], densityFloor)
		c := math.Max(curDensity[i], densityFloor)
		psi += (c - r) * math.Log(c/r)
	}
	return math.Abs(psi)
}

// PredictionDrift is the absolute difference of prediction means. This is a
// deliberately coarse proxy for distribution shift, not a divergence measure.
func (d *Detector) PredictionDrift(reference, current []float64) float64 {
	if len(reference) == 0 || len(current) == 0 {
		return 0
	}
	return math.Abs(mean(current) - mean(reference))
}

// PerformanceDrift averages the absolute relative change across the
// evaluation metrics present in both snapshots. Metrics missing on either
// side, or zero in the reference, are skipped.
func (d *Detector) PerformanceDrift(reference, current map[string]float64) float64 {
	sum := 0.0
	count := 0
	for _, key := range performanceKeys {
		refVal, refOK := reference[key]
		curVal, curOK := current[key]
		if !refOK || !curOK || refVal == 0 {
			continue
		}
		sum += math.Abs((curVal - refVal) / refVal)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Evaluate runs all three drift checks between two snapshots and rolls the
// results into a report. Data drift is the worst PSI across the feature
// columns both snapshots carry.
func (d *Detector) Evaluate(model string, reference, current models.MonitoringSnapshot) *models.DriftReport {
	dataDrift := 0.0
	for name, refCol := range reference.Features {
		curCol, ok := current.Features[name]
		if !ok {
			continue
		}
		if psi := d.DataDrift(refCol, curCol); psi > dataDrift {
			dataDrift = psi
		}
	}

	report := &models.DriftReport{
		Model:            model,
		Timestamp:        time.Now().UTC(),
		DataDrift:        dataDrift,
		PredictionDrift:  d.PredictionDrift(reference.Predictions, current.Predictions),
		PerformanceDrift: d.PerformanceDrift(reference.Performance, current.Performance),
	}
	report.Alerts = d.alerts(report)
	report.Status = status(report.Alerts)
	return report
}

// alerts flags every metric above its base threshold, raising the severity
// to high past the high threshold.
func (d *Detector) alerts(report *models.DriftReport) []models.DriftAlert {
	checks := []struct {
		name       string
		value      float64
		base, high float64
	}{
		{"data_drift", report.DataDrift, d.cfg.DataBase, d.cfg.DataHigh},
		{"prediction_drift", report.PredictionDrift, d.cfg.PredictionBase, d.cfg.PredictionHigh},
		{"performance_drift", report.PerformanceDrift, d.cfg.PerformanceBase, d.cfg.PerformanceHigh},
	}

	var alerts []models.DriftAlert
	for _, c := range checks {
		if c.value <= c.base {
			continue
		}
		severity, threshold := "medium", c.base
		if c.value > c.high {
			severity, threshold = "high", c.high
		}
		alerts = append(alerts, models.DriftAlert{
			Type:      c.name,
			Severity:  severity,
			Value:     c.value,
			Threshold: threshold,
		})
	}
	return alerts
}

// status maps the alert set to an overall health label: two high-severity
// breaches are critical, one is a warning, any breach at all needs attention.
func status(alerts []models.DriftAlert) models.DriftStatus {
	high := 0
	for _, a := range alerts {
		if a.Severity == "high" {
			high++
		}
	}
	switch {
	case high >= 2:
		return models.DriftCritical
	case high == 1:
		return models.DriftWarning
	case len(alerts) > 0:
		return models.DriftAttention
	default:
		return models.DriftHealthy
	}
}

// percentileEdges returns deduplicated percentile cut points over the
// reference values, linearly interpolated.
func percentileEdges(values []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, maxBins+1)
	for i := 0; i <= maxBins; i++ {
		p := percentile(sorted, float64(i)/float64(maxBins))
		if len(edges) == 0 || p > edges[len(edges)-1] {
			edges = append(edges, p)
		}
	}
	return edges
}

// percentile interpolates the q-quantile (q in [0,1]) of pre-sorted values.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// binDensities counts values per bin and normalizes by the total count.
// Values beyond the outer edges accumulate in the first or last bin.
func binDensities(values []float64, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	for _, v := range values {
		counts[binIndex(v, edges)]++
	}
	total := float64(len(values))
	for i := range counts {
		counts[i] /= total
	}
	return counts
}

func binIndex(v float64, edges []float64) int {
	last := len(edges) - 2
	for i := 0; i < last; i++ {
		if v < edges[i+1] {
			return i
		}
	}
	return last
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
