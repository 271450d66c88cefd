package services

import (
	"math"
	"testing"
)

func TestCostPer1K(t *testing.T) {
	tests := []struct {
		model    string
		expected float64
	}{
		// Longest prefix wins.
		{"gpt-4o-mini", 0.00038},
		{"gpt-4o-mini-2024-07-18", 0.00038},
		{"gpt-4o", 0.0075},
		{"gpt-4o-2024-08-06", 0.0075},
		{"gpt-4.1-mini", 0.001},
		{"gpt-3.5-turbo", 0.001},
		{"o3-mini", 0.005},
		{"claude-3-5-haiku-latest", 0.0024},
		{"claude-3-5-sonnet-20241022", 0.009},
		{"claude-opus-4", 0.045},
		{"claude-anything-else", 0.009},
		{"gemini-2.0-flash", 0.0003},
		{"gemini-1.5-pro", 0.00375},
		{"gemini-exp", 0.0003},
		// Case-insensitive.
		{"GPT-4o-MINI", 0.00038},
		// Unknown models get the generic cloud rate.
		{"mystery-model", 0.002},
		{"", 0.002},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := CostPer1K(tt.model); got != tt.expected {
				t.Errorf("CostPer1K(%q) = %v, expected %v", tt.model, got, tt.expected)
			}
		})
	}
}

func TestEstimateCostUSD(t *testing.T) {
	tests := []struct {
		name     string
		tokens   int
		model    string
		expected float64
	}{
		{"thousand tokens at list rate", 1000, "gpt-4o", 0.0075},
		{"fractional thousand", 500, "gpt-4o-mini", 0.00019},
		{"zero tokens", 0, "gpt-4o", 0},
		{"negative tokens", -10, "gpt-4o", 0},
		{"unknown model", 2000, "mystery", 0.004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCostUSD(tt.tokens, tt.model)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("EstimateCostUSD(%d, %q) = %v, expected %v", tt.tokens, tt.model, got, tt.expected)
			}
		})
	}
}
