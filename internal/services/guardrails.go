package services

import "fmt"

// TruncationMarker is appended as a trailing user message whenever the
// token guardrail trims a conversation, so the provider can tell that
// earlier content was elided.
const TruncationMarker = "...[truncated]"

// Guardrails holds the pre-flight limits checked before any provider call.
// Checks run in a fixed order: value, then cost, then tokens. The first
// tripped check decides the outcome.
type Guardrails struct {
	MinValueScore    float64
	MaxCostPerCall   float64
	MaxTokensPerCall int
}

// BelowValueFloor reports whether the call is too low-value to execute.
func (g Guardrails) BelowValueFloor(req CallRequest) bool {
	return req.valueScore() < g.MinValueScore
}

// OverCostCeiling reports whether the estimated spend exceeds the per-call
// ceiling, together with the estimate that tripped it.
func (g Guardrails) OverCostCeiling(req CallRequest, p Provider) (float64, bool) {
	if g.MaxCostPerCall <= 0 {
		return 0, false
	}
	cost := p.EstimateCost(p.EstimateTokens(req), req.Model)
	return cost, cost > g.MaxCostPerCall
}

// EnforceTokenLimit trims the conversation until the estimated prompt fits
// the token budget. Non-system messages are dropped from the tail; system
// messages are never dropped or edited. When anything was removed, a
// truncation marker message is appended and the second return is true.
func (g Guardrails) EnforceTokenLimit(req CallRequest, estimate func([]Message) int) (CallRequest, bool) {
	if g.MaxTokensPerCall <= 0 || estimate(req.Messages) <= g.MaxTokensPerCall {
		return req, false
	}

	msgs := make([]Message, len(req.Messages))
	copy(msgs, req.Messages)

	for estimate(msgs) > g.MaxTokensPerCall {
		idx := -1
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role != RoleSystem {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Only system messages left; nothing more can go.
			break
		}
		msgs = append(msgs[:idx], msgs[idx+1:]...)
	}

	req.Messages = append(msgs, Message{Role: RoleUser, Content: TruncationMarker})
	return req, true
}

func costCeilingError(cost, ceiling float64) string {
	return fmt.Sprintf("skipped: estimated cost $%.4f exceeds ceiling $%.4f", cost, ceiling)
}
