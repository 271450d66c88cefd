package services

import "strings"

// modelPricing is the blended USD cost per 1K tokens, by model prefix.
// Longest prefix wins so "gpt-4o-mini" is matched before "gpt-4o". Rates are
// deliberately coarse: guardrails need a stable ceiling check, not invoices.
var modelPricing = []struct {
	prefix string
	per1K  float64
}{
	{"gpt-4o-mini", 0.00038},
	{"gpt-4o", 0.0075},
	{"gpt-4.1-mini", 0.001},
	{"gpt-4.1", 0.005},
	{"gpt-3.5", 0.001},
	{"o3", 0.005},
	{"claude-3-5-haiku", 0.0024},
	{"claude-3-5-sonnet", 0.009},
	{"claude-sonnet", 0.009},
	{"claude-opus", 0.045},
	{"claude", 0.009},
	{"gemini-2.0-flash", 0.0003},
	{"gemini-1.5-pro", 0.00375},
	{"gemini", 0.0003},
}

const defaultCloudPer1K = 0.002

// CostPer1K returns the USD rate per 1K tokens for a model, using the
// longest matching prefix and a generic cloud rate for unknown models.
func CostPer1K(model string) float64 {
	model = strings.ToLower(model)
	best := -1
	for i, p := range modelPricing {
		if strings.HasPrefix(model, p.prefix) {
			if best == -1 || len(p.prefix) > len(modelPricing[best].prefix) {
				best = i
			}
		}
	}
	if best == -1 {
		return defaultCloudPer1K
	}
	return modelPricing[best].per1K
}

// EstimateCostUSD converts a token count into USD for the given model.
// Local models cost nothing and are handled by their adapter.
func EstimateCostUSD(tokens int, model string) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000.0 * CostPer1K(model)
}
