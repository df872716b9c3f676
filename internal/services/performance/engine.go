package performance

import (
	"fmt"
	"math"
	"sort"

	"ShareWise/internal/domain/models"
)

const tradingDaysPerYear = 252.0

// Config holds the metric conventions.
type Config struct {
	// RiskFreeRate is the annual rate used for excess returns. Default 0.05.
	RiskFreeRate float64 `yaml:"risk_free_rate" default:"0.05"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{RiskFreeRate: 0.05}
}

// Engine derives a risk/return profile from a daily returns series. It is
// stateless; every Compute call works from its arguments alone.
type Engine struct {
	cfg Config
}

// NewEngine creates a metrics engine, filling zero config fields with
// defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = DefaultConfig().RiskFreeRate
	}
	return &Engine{cfg: cfg}
}

// Compute derives the full metric set from daily returns and the starting
// capital. Sortino and Calmar may legitimately come back +Inf (no downside,
// zero drawdown); callers detect those with math.IsInf. The returns slice is
// copied into the result, never retained.
func (e *Engine) Compute(returns []float64, initialCapital float64) (*models.PerformanceMetrics, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("performance: empty returns series")
	}

	n := len(returns)
	dailyRF := e.cfg.RiskFreeRate / tradingDaysPerYear

	wins := 0
	excess := make([]float64, n)
	for i, r := range returns {
		if r > 0 {
			wins++
		}
		excess[i] = r - dailyRF
	}

	totalReturn := compound(returns) - 1
	annualized := math.Pow(1+totalReturn, tradingDaysPerYear/float64(n)) - 1
	maxDD, ddDuration := drawdown(returns)
	varVal, shortfall := tailRisk(returns)

	m := &models.PerformanceMetrics{
		TotalTrades:         n,
		WinRate:             float64(wins) / float64(n),
		TotalReturn:         totalReturn,
		TotalPnL:            initialCapital * totalReturn,
		AnnualizedReturn:    annualized,
		SharpeRatio:         sharpe(excess),
		SortinoRatio:        models.Ratio(sortino(excess)),
		CalmarRatio:         models.Ratio(calmar(annualized, maxDD)),
		MaxDrawdown:         maxDD,
		MaxDrawdownDuration: ddDuration,
		Volatility:          stddev(returns) * math.Sqrt(tradingDaysPerYear),
		VaR95:               varVal,
		ExpectedShortfall:   shortfall,
		Skewness:            skewness(returns),
		Kurtosis:            excessKurtosis(returns),
		Returns:             append([]float64(nil), returns...),
	}
	return m, nil
}

// compound multiplies out (1+r) across the series.
func compound(returns []float64) float64 {
	value := 1.0
	for _, r := range returns {
		value *= 1 + r
	}
	return value
}

// sharpe annualizes mean/std of excess returns. Zero when the sample is too
// small or the deviation vanishes.
func sharpe(excess []float64) float64 {
	if len(excess) < 2 {
		return 0
	}
	std := stddev(excess)
	if std == 0 {
		return 0
	}
	return mean(excess) / std * math.Sqrt(tradingDaysPerYear)
}

// sortino uses downside deviation only. With no negative excess return there
// is no downside at all, which reads as +Inf rather than an error.
func sortino(excess []float64) float64 {
	sumSq := 0.0
	negatives := 0
	for _, e := range excess {
		if e < 0 {
			sumSq += e * e
			negatives++
		}
	}
	if negatives == 0 {
		return math.Inf(1)
	}
	downside := math.Sqrt(sumSq / float64(negatives))
	if downside == 0 {
		return 0
	}
	return mean(excess) / downside * math.Sqrt(tradingDaysPerYear)
}

func calmar(annualized, maxDD float64) float64 {
	if maxDD == 0 {
		return math.Inf(1)
	}
	return annualized / maxDD
}

// drawdown walks the compounded value curve against its running maximum and
// reports the deepest drop plus the longest consecutive underwater stretch.
func drawdown(returns []float64) (float64, int) {
	value := 1.0
	peak := 1.0
	maxDD := 0.0
	longest, current := 0, 0
	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
			current = 0
			continue
		}
		dd := (peak - value) / peak
		if dd > maxDD {
			maxDD = dd
		}
		if dd > 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return maxDD, longest
}

// tailRisk reports VaR95 and expected shortfall as positive magnitudes. The
// cut is the 5th-percentile index of the ascending sort, and the shortfall
// averages everything at or below it.
func tailRisk(returns []float64) (float64, float64) {
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(0.05 * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	varVal := math.Abs(sorted[idx])
	shortfall := math.Abs(mean(sorted[:idx+1]))
	return varVal, shortfall
}

// skewness is the third standardized moment, zero for a degenerate series.
func skewness(returns []float64) float64 {
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	mu := mean(returns)
	sum := 0.0
	for _, r := range returns {
		d := (r - mu) / std
		sum += d * d * d
	}
	return sum / float64(len(returns))
}

// excessKurtosis is the fourth standardized moment minus 3.
func excessKurtosis(returns []float64) float64 {
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	mu := mean(returns)
	sum := 0.0
	for _, r := range returns {
		d := (r - mu) / std
		sum += d * d * d * d
	}
	return sum/float64(len(returns)) - 3
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

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
