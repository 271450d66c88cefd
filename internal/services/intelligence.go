package services

import "strings"

// CallAnalyzer derives routing intelligence from a call request. Analysis is
// pure: same request and analyzer state always produce the same result, so
// routing decisions stay reproducible in tests and in fossil replays.
type CallAnalyzer struct {
	// ComplexityThreshold is the auto-mode ceiling below which a call is
	// simple enough for the local provider.
	ComplexityThreshold float64
	// LocalAvailable reflects whether a local provider was detected when the
	// orchestrator started. Per-call probes happen later, at selection time.
	LocalAvailable bool
}

const (
	localQuality     = 0.80
	localCostBenefit = 0.90
	cloudQuality     = 0.95
	cloudCostBenefit = 0.60
)

// Analyze inspects a request and scores it for routing.
func (a *CallAnalyzer) Analyze(req CallRequest) CallIntelligence {
	intel := CallIntelligence{
		Complexity:      messageComplexity(req.Messages),
		RequiresContext: requiresContext(req.Purpose, req.Context),
		IsCreative:      mentionsAny(req.Purpose, "generat", "creat", "writ"),
		IsTimeSensitive: isTimeSensitive(req.Purpose, req.Context),
	}

	threshold := a.effectiveThreshold(req.RoutingPreference)
	intel.CanUseLocal = !intel.RequiresContext &&
		!intel.IsTimeSensitive &&
		intel.Complexity < threshold &&
		a.LocalAvailable

	if intel.CanUseLocal {
		intel.EstimatedQuality = localQuality
		intel.CostBenefit = localCostBenefit
	} else {
		intel.EstimatedQuality = cloudQuality
		intel.CostBenefit = cloudCostBenefit
	}
	return intel
}

// effectiveThreshold maps the routing preference onto the complexity
// ceiling: "local" admits any complexity, "cloud" admits none.
func (a *CallAnalyzer) effectiveThreshold(preference string) float64 {
	switch preference {
	case RouteLocal:
		return 1.0
	case RouteCloud:
		return 0.0
	default:
		return a.ComplexityThreshold
	}
}

// messageComplexity scores a conversation by average message length,
// normalized so that 1000 characters per message saturates the scale.
func messageComplexity(messages []Message) float64 {
	if len(messages) == 0 {
		return 0
	}
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	avg := float64(total) / float64(len(messages))
	return clamp01(avg / 1000.0)
}

// requiresContext reports whether the call depends on accumulated project
// context. Test-context calls never do, regardless of purpose.
func requiresContext(purpose, context string) bool {
	if context == "test" {
		return false
	}
	return mentionsAny(purpose, "analysis", "insight", "recommendation")
}

func isTimeSensitive(purpose, context string) bool {
	if context == "production" {
		return true
	}
	return mentionsAny(purpose, "real-time", "realtime", "urgent")
}

func mentionsAny(s string, needles ...string) bool {
	s = strings.ToLower(s)
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
