package explain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ShareWise/internal/domain/models"
	"ShareWise/internal/domain/service"
)

const topFactors = 3

// Confidence bands for the conviction sentence.
const (
	highConfidence     = 0.8
	moderateConfidence = 0.6
)

// displayNames maps factor keys to the wording used in justification text.
// Keys absent here fall back to underscore-to-space prettifying.
var displayNames = map[string]string{
	"rsi":                "RSI",
	"macd":               "MACD",
	"macd_signal":        "MACD signal",
	"macd_histogram":     "MACD histogram",
	"sma_10":             "SMA-10",
	"sma_20":             "SMA-20",
	"sma_50":             "SMA-50",
	"ema_12":             "EMA-12",
	"ema_26":             "EMA-26",
	"williams_r":         "Williams %R",
	"stochastic_k":       "Stochastic %K",
	"stochastic_d":       "Stochastic %D",
	"bollinger_upper":    "upper Bollinger band",
	"bollinger_middle":   "middle Bollinger band",
	"bollinger_lower":    "lower Bollinger band",
	"atr":                "ATR",
	"realized_vol":       "realized volatility",
	"volume_ratio":       "volume ratio",
	"support_resistance": "support/resistance posture",
	"trend":              "trend alignment",
	"momentum":           "momentum",
	"volume":             "volume",
	"volatility":         "volatility regime",
}

// Explainer renders deterministic justification text from feature
// attributions. It never fails: unusable attributions degrade to a generic
// confidence template so explanation can't block signal emission.
type Explainer struct{}

// NewExplainer builds the templated explainer.
func NewExplainer() *Explainer { return &Explainer{} }

// Explain ranks features by absolute importance, keeps the top three, and
// renders one sentence per factor plus a closing conviction sentence keyed
// on the confidence band. Identical inputs always produce identical text.
func (e *Explainer) Explain(featureValues, importances map[string]float64, signalType models.SignalType, confidence float64) models.Explanation {
	factors := rankFactors(featureValues, importances)
	if len(factors) == 0 {
		return models.Explanation{
			Justification: fmt.Sprintf("%s signal (confidence %.2f) from aggregate technical scoring. %s",
				signalType, confidence, convictionSentence(confidence)),
		}
	}

	sentences := make([]string, 0, len(factors))
	for _, f := range factors {
		sentences = append(sentences, factorSentence(f))
	}

	justification := fmt.Sprintf("%s signal (confidence %.2f): %s. %s",
		signalType, confidence, strings.Join(sentences, "; "), convictionSentence(confidence))

	return models.Explanation{Justification: justification, Factors: factors}
}

// rankFactors orders non-zero importances by absolute weight, breaking ties
// by name so the output is stable across runs.
func rankFactors(featureValues, importances map[string]float64) []models.RankedFactor {
	factors := make([]models.RankedFactor, 0, len(importances))
	for name, imp := range importances {
		if imp == 0 {
			continue
		}
		direction := "positive"
		if imp < 0 {
			direction = "negative"
		}
		factors = append(factors, models.RankedFactor{
			Name:       name,
			Importance: imp,
			Value:      featureValues[name],
			Direction:  direction,
		})
	}

	sort.Slice(factors, func(i, j int) bool {
		ai, aj := math.Abs(factors[i].Importance), math.Abs(factors[j].Importance)
		if ai != aj {
			return ai > aj
		}
		return factors[i].Name < factors[j].Name
	})

	if len(factors) > topFactors {
		factors = factors[:topFactors]
	}
	return factors
}

func factorSentence(f models.RankedFactor) string {
	verb := "supports the call"
	if f.Importance < 0 {
		verb = "works against the call"
	}
	return fmt.Sprintf("%s (%.2f) %s with weight %.2f", displayName(f.Name), f.Value, verb, math.Abs(f.Importance))
}

func convictionSentence(confidence float64) string {
	switch {
	case confidence > highConfidence:
		return "High conviction."
	case confidence > moderateConfidence:
		return "Moderate conviction."
	default:
		return "Low conviction."
	}
}

func displayName(key string) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return strings.ReplaceAll(key, "_", " ")
}

var _ service.Explainer = (*Explainer)(nil)
