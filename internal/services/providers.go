package services

import (
	"context"
	"sync"

	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
)

// ProviderKind separates on-host inference from remote APIs.
type ProviderKind string

const (
	KindLocal ProviderKind = "local"
	KindCloud ProviderKind = "cloud"
)

// Provider is a single LLM backend the orchestrator can dispatch to.
// Implementations must be safe for concurrent use and must never panic on
// Available, which is probed on every call.
type Provider interface {
	Name() string
	Kind() ProviderKind
	// Available reports whether the provider can take a call right now.
	// Probes are expected to be cheap; adapters with remote daemons use a
	// short timeout.
	Available(ctx context.Context) bool
	Call(ctx context.Context, req CallRequest) (*CallResponse, error)
	// EstimateTokens predicts the prompt token count for guardrail checks.
	EstimateTokens(req CallRequest) int
	// EstimateCost converts a token count into USD for the given model.
	EstimateCost(tokens int, model string) float64
}

// ProviderRegistry holds the providers registered for this session, in
// registration order. Providers can be added or replaced at any time;
// removal is deliberately unsupported so that usage records always refer to
// a provider that existed during the session.
type ProviderRegistry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{byName: make(map[string]Provider)}
}

// Register adds a provider. Registering an existing name replaces the
// implementation in place and keeps its position in the dispatch order.
func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.byName[name]; exists {
		logger.Warnf("[Registry] Provider %s replaced", name)
	} else {
		r.order = append(r.order, name)
		logger.Infof("[Registry] Provider %s registered (%s)", name, p.Kind())
	}
	r.byName[name] = p
}

// Get returns the provider with the given name, or nil.
func (r *ProviderRegistry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// All returns providers in registration order.
func (r *ProviderRegistry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Local returns registered local providers in registration order.
func (r *ProviderRegistry) Local() []Provider {
	return r.filter(KindLocal)
}

// Cloud returns registered cloud providers in registration order.
func (r *ProviderRegistry) Cloud() []Provider {
	return r.filter(KindCloud)
}

func (r *ProviderRegistry) filter(kind ProviderKind) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	for _, name := range r.order {
		if p := r.byName[name]; p.Kind() == kind {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of registered providers.
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// FuncProvider adapts plain closures into a Provider, for callers that want
// to plug in a custom backend without a full implementation. Nil funcs get
// sensible defaults: always available, estimates via the shared token
// estimator, zero cost.
type FuncProvider struct {
	ProviderName  string
	ProviderKind  ProviderKind
	AvailableFunc func(ctx context.Context) bool
	CallFunc      func(ctx context.Context, req CallRequest) (*CallResponse, error)
	EstimateFunc  func(req CallRequest) int
	CostFunc      func(tokens int, model string) float64
}

func (f *FuncProvider) Name() string { return f.ProviderName }

func (f *FuncProvider) Kind() ProviderKind {
	if f.ProviderKind == "" {
		return KindCloud
	}
	return f.ProviderKind
}

func (f *FuncProvider) Available(ctx context.Context) bool {
	if f.AvailableFunc == nil {
		return true
	}
	return f.AvailableFunc(ctx)
}

func (f *FuncProvider) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	return f.CallFunc(ctx, req)
}

func (f *FuncProvider) EstimateTokens(req CallRequest) int {
	if f.EstimateFunc == nil {
		return EstimateTokens(req.Model, req.Messages)
	}
	return f.EstimateFunc(req)
}

func (f *FuncProvider) EstimateCost(tokens int, model string) float64 {
	if f.CostFunc == nil {
		return 0
	}
	return f.CostFunc(tokens, model)
}
