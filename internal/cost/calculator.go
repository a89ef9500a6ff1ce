// Package cost estimates language-model spend from token usage.
package cost

import "github.com/sells-group/report-qa/internal/model"

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps model identifiers to pricing.
type Rates map[string]ModelRate

// Calculator computes costs for model usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Estimate returns the USD cost of usage on modelID. Unknown models cost 0
// and report ok=false.
func (c *Calculator) Estimate(modelID string, usage model.TokenUsage) (float64, bool) {
	rate, ok := c.rates[modelID]
	if !ok {
		return 0, false
	}
	in := (float64(usage.InputTokens) / 1e6) * rate.Input
	out := (float64(usage.OutputTokens) / 1e6) * rate.Output
	return in + out, true
}

// DefaultRates returns list prices for the default models of each provider.
func DefaultRates() Rates {
	return Rates{
		"deepseek-chat":              {Input: 0.28, Output: 0.42},
		"deepseek-reasoner":          {Input: 0.28, Output: 0.42},
		"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		"gemini-2.5-flash":           {Input: 0.30, Output: 2.50},
		"gemini-2.5-pro":             {Input: 1.25, Output: 10.00},
	}
}
