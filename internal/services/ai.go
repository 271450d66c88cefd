package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrNoMessages rejects a request with an empty conversation. This and
	// ErrOrchestratorClosed are the only errors Execute ever returns;
	// provider failures always resolve to a fallback response instead.
	ErrNoMessages = errors.New("call request has no messages")

	// ErrOrchestratorClosed is returned once Shutdown has begun.
	ErrOrchestratorClosed = errors.New("orchestrator is shut down")
)

// Orchestrator routes LLM calls across registered providers with guardrail
// checks, retry with exponential backoff, usage tracking and fossilization.
type Orchestrator struct {
	retry      config.RetryConfig
	guardrails Guardrails
	analyzer   *CallAnalyzer
	planner    *routePlanner
	registry   *ProviderRegistry
	tracker    *UsageTracker
	fossils    *FossilPipeline
	events     *EventHub
	limiter    *rate.Limiter
	sessionID  string
	log        zerolog.Logger

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	// sleepFn is swapped in tests to observe backoff without real delays.
	sleepFn func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the orchestrator for one session. The local
// provider probe runs once here; per-call probes still happen at routing
// time.
func NewOrchestrator(
	cfg config.OrchestratorConfig,
	registry *ProviderRegistry,
	tracker *UsageTracker,
	fossils *FossilPipeline,
	events *EventHub,
) *Orchestrator {
	probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	localAvailable := false
	for _, p := range registry.Local() {
		if p.Available(probeCtx) {
			localAvailable = true
			break
		}
	}

	o := &Orchestrator{
		retry: cfg.Retry,
		guardrails: Guardrails{
			MinValueScore:    cfg.Guardrails.MinValueScore,
			MaxCostPerCall:   cfg.Guardrails.MaxCostPerCall,
			MaxTokensPerCall: cfg.Guardrails.MaxTokensPerCall,
		},
		analyzer: &CallAnalyzer{
			ComplexityThreshold: cfg.Routing.ComplexityThreshold,
			LocalAvailable:      localAvailable,
		},
		planner:   &routePlanner{registry: registry, preferLocal: cfg.Routing.PreferLocal},
		registry:  registry,
		tracker:   tracker,
		fossils:   fossils,
		events:    events,
		sessionID: "session_" + uuid.New().String(),
		log:       logger.Component("orchestrator"),
		sleepFn:   sleepContext,
	}
	if cfg.DispatchRate.Enabled {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRate.RPS), cfg.DispatchRate.Burst)
	}

	o.log.Info().
		Str("session_id", o.sessionID).
		Bool("local_available", localAvailable).
		Int("providers", registry.Len()).
		Msg("orchestrator ready")
	return o
}

// SessionID returns the session identifier stamped on this orchestrator's
// metrics and fossils.
func (o *Orchestrator) SessionID() string { return o.sessionID }

// RegisterProvider adds a provider for the rest of the session.
func (o *Orchestrator) RegisterProvider(p Provider) {
	o.registry.Register(p)
}

// Analyze runs the pre-flight call analysis without executing anything.
func (o *Orchestrator) Analyze(req CallRequest) CallIntelligence {
	return o.analyzer.Analyze(req.normalized())
}

// Execute routes one call through guardrails, provider selection, retries
// and the audit pipeline. Provider failures never surface as errors: the
// caller always gets a usable response, falling back to a synthesized one
// when every provider is exhausted.
func (o *Orchestrator) Execute(ctx context.Context, req CallRequest) (*CallResponse, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil, ErrOrchestratorClosed
	}
	o.inflight.Add(1)
	o.mu.RUnlock()
	defer o.inflight.Done()

	req = req.normalized()
	callID := "call_" + uuid.New().String()
	sessionID := o.sessionID
	if req.SessionID != "" {
		sessionID = req.SessionID
	}
	start := time.Now()

	intel := o.analyzer.Analyze(req)

	// Value floor first: the only outcome that is neither tracked nor
	// fossilized.
	if o.guardrails.BelowValueFloor(req) {
		o.log.Info().
			Str("call_id", callID).
			Float64("value_score", req.valueScore()).
			Msg("call skipped below value floor")
		return o.fallbackResponse(req.Purpose), nil
	}

	decision := o.planner.plan(ctx, intel)
	for _, reason := range decision.Reasons {
		o.log.Debug().Str("call_id", callID).Msg(reason)
	}
	if len(decision.Chain) == 0 {
		o.record(req, callID, sessionID, callOutcome{
			provider:   "none",
			err:        "no provider available",
			durationMS: time.Since(start).Milliseconds(),
			fallback:   true,
			tags:       []string{"fallback", "no-provider"},
		})
		return o.fallbackResponse(req.Purpose), nil
	}

	// Cost ceiling, estimated against the first candidate.
	if cost, over := o.guardrails.OverCostCeiling(req, decision.Chain[0]); over {
		errMsg := costCeilingError(cost, o.guardrails.MaxCostPerCall)
		o.log.Warn().Str("call_id", callID).Msg(errMsg)
		o.record(req, callID, sessionID, callOutcome{
			provider:   "none",
			model:      req.Model,
			err:        errMsg,
			durationMS: time.Since(start).Milliseconds(),
			fallback:   true,
			tags:       []string{"skipped", "cost"},
		})
		return o.fallbackResponse(req.Purpose), nil
	}

	// Token budget; tripping it truncates instead of skipping.
	req, truncated := o.guardrails.EnforceTokenLimit(req, func(msgs []Message) int {
		probe := req
		probe.Messages = msgs
		return decision.Chain[0].EstimateTokens(probe)
	})
	if truncated {
		o.log.Warn().Str("call_id", callID).Msg("conversation truncated to fit token budget")
	}

	var lastErr error
	for i, p := range decision.Chain {
		attemptStart := time.Now()
		resp, attempts, err := o.callWithRetry(ctx, p, req)
		duration := time.Since(attemptStart).Milliseconds()

		if err == nil {
			model := resp.Model
			if model == "" {
				model = req.Model
			}
			resp.Provider = p.Name()
			o.record(req, callID, sessionID, callOutcome{
				provider:   p.Name(),
				model:      model,
				success:    true,
				usage:      resp.Usage,
				cost:       p.EstimateCost(resp.Usage.TotalTokens, model),
				durationMS: duration,
				attempts:   attempts,
				truncated:  truncated,
			})
			return resp, nil
		}

		lastErr = err
		o.log.Error().
			Err(err).
			Str("call_id", callID).
			Str("provider", p.Name()).
			Int("attempts", attempts).
			Msg("provider exhausted retries")
		o.record(req, callID, sessionID, callOutcome{
			provider:   p.Name(),
			model:      req.Model,
			err:        err.Error(),
			durationMS: duration,
			attempts:   attempts,
			truncated:  truncated,
		})

		// A rate-limited provider earns one extra cool-down before the
		// chain moves on.
		if i < len(decision.Chain)-1 && isRateLimited(err) {
			o.log.Warn().Str("call_id", callID).Msg("rate limited, cooling down before next provider")
			if serr := o.sleepFn(ctx, time.Duration(o.retry.RateLimitDelayMS)*time.Millisecond); serr != nil {
				break
			}
		}
	}

	o.log.Error().Str("call_id", callID).Msgf("all providers failed, last error: %v", lastErr)
	return o.fallbackResponse(req.Purpose), nil
}

// callWithRetry runs up to the configured attempts against one provider
// with exponential backoff between tries. It returns the attempt count
// alongside the result so the usage record can carry it.
func (o *Orchestrator) callWithRetry(ctx context.Context, p Provider, req CallRequest) (*CallResponse, int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.retry.Attempts; attempt++ {
		if attempt > 1 {
			if err := o.sleepFn(ctx, o.backoffDelay(attempt)); err != nil {
				return nil, attempt - 1, lastErr
			}
		}
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, attempt, err
			}
		}

		resp, err := p.Call(ctx, req)
		if err == nil {
			return resp, attempt, nil
		}
		lastErr = err
		o.log.Warn().
			Str("provider", p.Name()).
			Int("attempt", attempt).
			Msgf("call attempt failed: %v", err)

		if ctx.Err() != nil {
			return nil, attempt, lastErr
		}
	}
	return nil, o.retry.Attempts, lastErr
}

// backoffDelay doubles per retry: base, 2x, 4x for attempts 2, 3, 4.
func (o *Orchestrator) backoffDelay(attempt int) time.Duration {
	base := time.Duration(o.retry.BaseDelayMS) * time.Millisecond
	return base << (attempt - 2)
}

// isRateLimited classifies provider errors by substring, mirroring the
// status text of every supported backend.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

type callOutcome struct {
	provider   string
	model      string
	success    bool
	err        string
	usage      TokenUsage
	cost       float64
	durationMS int64
	attempts   int
	truncated  bool
	fallback   bool
	tags       []string
}

// record writes the fossil first so the usage metric can reference it.
func (o *Orchestrator) record(req CallRequest, callID, sessionID string, out callOutcome) {
	fossilID, inputHash := o.fossils.Record(req, callID, sessionID, out)

	o.tracker.Track(UsageMetric{
		Timestamp:        time.Now().UTC(),
		CallID:           callID,
		SessionID:        sessionID,
		Provider:         out.provider,
		Model:            out.model,
		PromptTokens:     out.usage.PromptTokens,
		CompletionTokens: out.usage.CompletionTokens,
		TotalTokens:      out.usage.TotalTokens,
		CostUSD:          out.cost,
		DurationMS:       out.durationMS,
		Success:          out.success,
		Error:            out.err,
		Context:          req.Context,
		Purpose:          req.Purpose,
		ValueScore:       req.valueScore(),
		InputHash:        inputHash,
		FossilID:         fossilID,
		Attempts:         out.attempts,
		Truncated:        out.truncated,
	})

	if o.events != nil {
		status := "completed"
		if !out.success {
			status = "failed"
		}
		o.events.Publish(CallEvent{
			CallID:     callID,
			SessionID:  sessionID,
			Provider:   out.provider,
			Model:      out.model,
			Status:     status,
			Error:      out.err,
			FossilID:   fossilID,
			CostUSD:    out.cost,
			DurationMS: out.durationMS,
		})
	}
}

// fallbackResponse synthesizes the fixed response shape for calls that
// could not (or should not) reach a provider.
func (o *Orchestrator) fallbackResponse(purpose string) *CallResponse {
	return &CallResponse{
		Choices: []Choice{{Message: Message{
			Role:    RoleAssistant,
			Content: fallbackContent(purpose),
		}}},
		Provider: "fallback",
		Fallback: true,
	}
}

func fallbackContent(purpose string) string {
	switch {
	case mentionsAny(purpose, "analysis", "insight"):
		return "Analysis is temporarily unavailable. The request was recorded and can be retried."
	case mentionsAny(purpose, "recommendation"):
		return "No recommendations can be produced right now. Please retry shortly."
	case mentionsAny(purpose, "generat", "creat", "writ"):
		return "Content generation is temporarily unavailable. Please retry shortly."
	default:
		return "The request could not be completed right now. Please retry shortly."
	}
}

// Shutdown stops accepting new calls, waits for in-flight calls up to the
// context deadline, then flushes pending usage writes. It is idempotent.
// Signal handling is the host's job; nothing here installs handlers.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.log.Warn().Msg("shutdown deadline reached with calls still in flight")
	}

	return o.tracker.Flush(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
