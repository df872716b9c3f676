package options

import (
	"fmt"
	"math"

	"ShareWise/internal/domain/models"
)

// Config holds pricing defaults.
type Config struct {
	RiskFreeRate float64 // default 0.05
}

// DefaultConfig returns the documented default rate.
func DefaultConfig() Config {
	return Config{RiskFreeRate: 0.05}
}

// Calculator prices European options and their Greeks with Black-Scholes.
// Pure computation; safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator, filling a zero rate with the default.
func NewCalculator(cfg Config) *Calculator {
	if cfg.RiskFreeRate <= 0 {
		cfg.RiskFreeRate = DefaultConfig().RiskFreeRate
	}
	return &Calculator{cfg: cfg}
}

// DefaultRate returns the configured risk-free rate for callers that do not
// carry their own.
func (c *Calculator) DefaultRate() float64 { return c.cfg.RiskFreeRate }

// BlackScholes prices one contract. Theta is reported per calendar day,
// vega per 1% volatility move, rho per 1% rate move. Spot, strike, expiry
// and volatility must be strictly positive; violations are an error, never
// clamped.
func (c *Calculator) BlackScholes(spot, strike, expiryYears, volatility, rate float64, optionType models.OptionType) (*models.OptionGreeks, error) {
	if spot <= 0 || strike <= 0 {
		return nil, fmt.Errorf("options: spot and strike must be positive (spot=%v strike=%v)", spot, strike)
	}
	if expiryYears <= 0 {
		return nil, fmt.Errorf("options: time to expiry must be positive (got %v)", expiryYears)
	}
	if volatility <= 0 {
		return nil, fmt.Errorf("options: volatility must be positive (got %v)", volatility)
	}
	if optionType != models.OptionCall && optionType != models.OptionPut {
		return nil, fmt.Errorf("options: unknown option type %q", optionType)
	}

	sqrtT := math.Sqrt(expiryYears)
	d1 := (math.Log(spot/strike) + (rate+volatility*volatility/2)*expiryYears) / (volatility * sqrtT)
	d2 := d1 - volatility*sqrtT
	discount := math.Exp(-rate * expiryYears)

	g := &models.OptionGreeks{
		Gamma: normPDF(d1) / (spot * volatility * sqrtT),
		Vega:  spot * normPDF(d1) * sqrtT / 100,
	}

	decay := -spot * normPDF(d1) * volatility / (2 * sqrtT)
	switch optionType {
	case models.OptionCall:
		g.Price = spot*normCDF(d1) - strike*discount*normCDF(d2)
		g.Delta = normCDF(d1)
		g.Theta = (decay - rate*strike*discount*normCDF(d2)) / 365
		g.Rho = strike * expiryYears * discount * normCDF(d2) / 100
	case models.OptionPut:
		g.Price = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
		g.Delta = -normCDF(-d1)
		g.Theta = (decay + rate*strike*discount*normCDF(-d2)) / 365
		g.Rho = -strike * expiryYears * discount * normCDF(-d2) / 100
	}
	return g, nil
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
