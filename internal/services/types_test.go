package services

import "testing"

func TestCallRequest_Normalized(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := CallRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}.normalized()

		if got.Temperature == nil || *got.Temperature != 0.7 {
			t.Errorf("Temperature = %v, expected 0.7", got.Temperature)
		}
		if got.MaxTokens != 1000 {
			t.Errorf("MaxTokens = %d, expected 1000", got.MaxTokens)
		}
		if got.Context != "general" || got.Purpose != "general" {
			t.Errorf("Context/Purpose = %s/%s, expected general/general", got.Context, got.Purpose)
		}
		if got.ValueScore == nil || *got.ValueScore != 0.5 {
			t.Errorf("ValueScore = %v, expected 0.5", got.ValueScore)
		}
		if got.RoutingPreference != RouteAuto {
			t.Errorf("RoutingPreference = %q, expected auto", got.RoutingPreference)
		}
	})

	t.Run("explicit values survive", func(t *testing.T) {
		temp := 0.2
		score := 0.9
		req := CallRequest{
			Messages:          []Message{{Role: RoleUser, Content: "hi"}},
			Temperature:       &temp,
			MaxTokens:         50,
			Context:           "ci",
			Purpose:           "lint",
			ValueScore:        &score,
			RoutingPreference: RouteLocal,
		}
		got := req.normalized()

		if *got.Temperature != 0.2 || got.MaxTokens != 50 {
			t.Errorf("Temperature/MaxTokens = %v/%d", *got.Temperature, got.MaxTokens)
		}
		if got.Context != "ci" || got.Purpose != "lint" {
			t.Errorf("Context/Purpose = %s/%s", got.Context, got.Purpose)
		}
		if *got.ValueScore != 0.9 {
			t.Errorf("ValueScore = %v, expected 0.9", *got.ValueScore)
		}
		if got.RoutingPreference != RouteLocal {
			t.Errorf("RoutingPreference = %q, expected local", got.RoutingPreference)
		}
	})

	t.Run("out of range values clamp", func(t *testing.T) {
		high := 1.5
		low := -0.5

		got := CallRequest{ValueScore: &high, MaxTokens: -3, RoutingPreference: "teleport"}.normalized()
		if *got.ValueScore != 1 {
			t.Errorf("ValueScore = %v, expected clamp to 1", *got.ValueScore)
		}
		if got.MaxTokens != 1000 {
			t.Errorf("MaxTokens = %d, expected default 1000", got.MaxTokens)
		}
		if got.RoutingPreference != RouteAuto {
			t.Errorf("RoutingPreference = %q, expected auto", got.RoutingPreference)
		}

		got = CallRequest{ValueScore: &low}.normalized()
		if *got.ValueScore != 0 {
			t.Errorf("ValueScore = %v, expected clamp to 0", *got.ValueScore)
		}
	})

	t.Run("caller's request is unchanged", func(t *testing.T) {
		req := CallRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
		req.normalized()
		if req.Temperature != nil || req.MaxTokens != 0 || req.Context != "" {
			t.Errorf("original mutated: %+v", req)
		}
	})
}

func TestCallResponse_Content(t *testing.T) {
	tests := []struct {
		name     string
		resp     *CallResponse
		expected string
	}{
		{"nil response", nil, ""},
		{"no choices", &CallResponse{}, ""},
		{
			"first choice",
			&CallResponse{Choices: []Choice{
				{Message: Message{Role: RoleAssistant, Content: "first"}},
				{Message: Message{Role: RoleAssistant, Content: "second"}},
			}},
			"first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Content(); got != tt.expected {
				t.Errorf("Content() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}

	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.expected {
			t.Errorf("clamp01(%v) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}
