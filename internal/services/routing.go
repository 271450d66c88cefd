package services

import (
	"context"
	"fmt"
)

// RouteDecision is the ordered provider chain for one call, with the
// reasoning that produced it. Reasons are log-and-debug material only; they
// never influence execution.
type RouteDecision struct {
	Chain   []Provider
	Reasons []string
}

type routePlanner struct {
	registry    *ProviderRegistry
	preferLocal bool
}

// plan builds the dispatch chain. Local-first when the analysis admits it
// and a local provider answers its probe; otherwise cloud providers in
// registration order with local kept as the last resort. Providers that
// fail their availability probe are left out entirely.
func (rp *routePlanner) plan(ctx context.Context, intel CallIntelligence) RouteDecision {
	var decision RouteDecision

	local := rp.available(ctx, rp.registry.Local())
	cloud := rp.available(ctx, rp.registry.Cloud())

	switch {
	case len(local) == 0 && len(cloud) == 0:
		decision.Reasons = append(decision.Reasons, "no provider passed its availability probe")
	case intel.CanUseLocal && rp.preferLocal && len(local) > 0:
		decision.Chain = append(decision.Chain, local...)
		decision.Chain = append(decision.Chain, cloud...)
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("local-first: complexity %.2f within threshold", intel.Complexity))
	default:
		decision.Chain = append(decision.Chain, cloud...)
		decision.Chain = append(decision.Chain, local...)
		decision.Reasons = append(decision.Reasons, cloudFirstReason(intel))
	}
	return decision
}

func (rp *routePlanner) available(ctx context.Context, providers []Provider) []Provider {
	var out []Provider
	for _, p := range providers {
		if p.Available(ctx) {
			out = append(out, p)
		}
	}
	return out
}

func cloudFirstReason(intel CallIntelligence) string {
	switch {
	case intel.RequiresContext:
		return "cloud-first: call requires accumulated context"
	case intel.IsTimeSensitive:
		return "cloud-first: call is time sensitive"
	case !intel.CanUseLocal:
		return fmt.Sprintf("cloud-first: complexity %.2f above local threshold", intel.Complexity)
	default:
		return "cloud-first: local routing not preferred"
	}
}
