package services

import (
	"strings"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestGuardrails_BelowValueFloor(t *testing.T) {
	g := Guardrails{MinValueScore: 0.3}

	tests := []struct {
		name     string
		score    *float64
		expected bool
	}{
		{"above floor", floatPtr(0.8), false},
		{"exactly at floor", floatPtr(0.3), false},
		{"below floor", floatPtr(0.1), true},
		{"nil score defaults to 0.5", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CallRequest{ValueScore: tt.score}
			if got := g.BelowValueFloor(req); got != tt.expected {
				t.Errorf("BelowValueFloor() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestGuardrails_OverCostCeiling(t *testing.T) {
	expensive := &FuncProvider{
		ProviderName: "pricey",
		EstimateFunc: func(req CallRequest) int { return 1000 },
		CostFunc:     func(tokens int, model string) float64 { return float64(tokens) * 0.0001 },
	}

	tests := []struct {
		name     string
		ceiling  float64
		cost     float64
		exceeded bool
	}{
		{"under ceiling", 0.5, 0.1, false},
		{"over ceiling", 0.05, 0.1, true},
		{"zero ceiling disables the check", 0, 0, false},
		{"negative ceiling disables the check", -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Guardrails{MaxCostPerCall: tt.ceiling}
			cost, exceeded := g.OverCostCeiling(CallRequest{}, expensive)
			if exceeded != tt.exceeded {
				t.Errorf("exceeded = %v, expected %v", exceeded, tt.exceeded)
			}
			if cost != tt.cost {
				t.Errorf("cost = %v, expected %v", cost, tt.cost)
			}
		})
	}
}

func TestGuardrails_EnforceTokenLimit(t *testing.T) {
	// One token per character keeps the arithmetic readable.
	estimate := func(msgs []Message) int {
		total := 0
		for _, m := range msgs {
			total += len(m.Content)
		}
		return total
	}

	t.Run("under limit is untouched", func(t *testing.T) {
		g := Guardrails{MaxTokensPerCall: 100}
		req := CallRequest{Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hello"},
		}}

		got, truncated := g.EnforceTokenLimit(req, estimate)
		if truncated {
			t.Error("truncated = true, expected false")
		}
		if len(got.Messages) != 2 {
			t.Errorf("len(Messages) = %d, expected 2", len(got.Messages))
		}
	})

	t.Run("zero limit disables the check", func(t *testing.T) {
		g := Guardrails{MaxTokensPerCall: 0}
		req := CallRequest{Messages: []Message{
			{Role: RoleUser, Content: strings.Repeat("x", 10000)},
		}}

		if _, truncated := g.EnforceTokenLimit(req, estimate); truncated {
			t.Error("truncated = true, expected false with no limit")
		}
	})

	t.Run("drops newest non-system messages first", func(t *testing.T) {
		g := Guardrails{MaxTokensPerCall: 20}
		req := CallRequest{Messages: []Message{
			{Role: RoleSystem, Content: strings.Repeat("s", 10)},
			{Role: RoleUser, Content: strings.Repeat("a", 8)},
			{Role: RoleAssistant, Content: strings.Repeat("b", 8)},
			{Role: RoleUser, Content: strings.Repeat("c", 8)},
		}}

		got, truncated := g.EnforceTokenLimit(req, estimate)
		if !truncated {
			t.Fatal("truncated = false, expected true")
		}
		// 34 tokens over a 20 budget: the two newest non-system messages go,
		// leaving system + first user, then the marker is appended.
		if len(got.Messages) != 3 {
			t.Fatalf("len(Messages) = %d, expected 3: %+v", len(got.Messages), got.Messages)
		}
		if got.Messages[0].Role != RoleSystem {
			t.Errorf("Messages[0].Role = %s, expected system", got.Messages[0].Role)
		}
		if got.Messages[1].Content != strings.Repeat("a", 8) {
			t.Errorf("Messages[1] = %q, expected the oldest user message", got.Messages[1].Content)
		}
		last := got.Messages[len(got.Messages)-1]
		if last.Role != RoleUser || last.Content != TruncationMarker {
			t.Errorf("last message = %+v, expected user %q", last, TruncationMarker)
		}
	})

	t.Run("system messages survive even over budget", func(t *testing.T) {
		g := Guardrails{MaxTokensPerCall: 5}
		req := CallRequest{Messages: []Message{
			{Role: RoleSystem, Content: strings.Repeat("s", 50)},
			{Role: RoleUser, Content: "hi"},
		}}

		got, truncated := g.EnforceTokenLimit(req, estimate)
		if !truncated {
			t.Fatal("truncated = false, expected true")
		}
		if got.Messages[0].Role != RoleSystem || len(got.Messages[0].Content) != 50 {
			t.Errorf("system message was modified: %+v", got.Messages[0])
		}
		if got.Messages[len(got.Messages)-1].Content != TruncationMarker {
			t.Error("marker missing after truncation")
		}
	})

	t.Run("original request is not mutated", func(t *testing.T) {
		g := Guardrails{MaxTokensPerCall: 5}
		original := []Message{
			{Role: RoleUser, Content: "first message"},
			{Role: RoleUser, Content: "second message"},
		}
		req := CallRequest{Messages: original}

		g.EnforceTokenLimit(req, estimate)
		if len(original) != 2 || original[1].Content != "second message" {
			t.Errorf("caller's slice was mutated: %+v", original)
		}
	})
}

func TestCostCeilingError(t *testing.T) {
	got := costCeilingError(0.12, 0.05)
	expected := "skipped: estimated cost $0.1200 exceeds ceiling $0.0500"
	if got != expected {
		t.Errorf("costCeilingError() = %q, expected %q", got, expected)
	}
}
