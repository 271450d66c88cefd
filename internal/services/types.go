package services

// Message roles accepted in a call request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Routing preferences accepted on a call request.
const (
	RouteAuto  = "auto"
	RouteLocal = "local"
	RouteCloud = "cloud"
)

// Message is a single chat message in a call request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallRequest describes one orchestrated LLM call. Field names follow the
// persisted record format, which is shared with external consumers of the
// usage log and fossil files.
type CallRequest struct {
	Model             string                 `json:"model,omitempty"`
	Messages          []Message              `json:"messages"`
	Temperature       *float64               `json:"temperature,omitempty"`
	MaxTokens         int                    `json:"maxTokens,omitempty"`
	Context           string                 `json:"context,omitempty"`
	Purpose           string                 `json:"purpose,omitempty"`
	ValueScore        *float64               `json:"valueScore,omitempty"`
	RoutingPreference string                 `json:"routingPreference,omitempty"`
	SessionID         string                 `json:"sessionId,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// normalized returns a copy with defaults applied and out-of-range values
// clamped. Requests are never rejected for bad scalar values.
func (r CallRequest) normalized() CallRequest {
	if r.Temperature == nil {
		t := 0.7
		r.Temperature = &t
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = 1000
	}
	if r.Context == "" {
		r.Context = "general"
	}
	if r.Purpose == "" {
		r.Purpose = "general"
	}
	score := 0.5
	if r.ValueScore != nil {
		score = clamp01(*r.ValueScore)
	}
	r.ValueScore = &score
	switch r.RoutingPreference {
	case RouteLocal, RouteCloud:
	default:
		r.RoutingPreference = RouteAuto
	}
	return r
}

func (r CallRequest) valueScore() float64 {
	if r.ValueScore == nil {
		return 0.5
	}
	return *r.ValueScore
}

func (r CallRequest) temperature() float64 {
	if r.Temperature == nil {
		return 0.7
	}
	return *r.Temperature
}

// Choice is one completion alternative in a call response.
type Choice struct {
	Message Message `json:"message"`
}

// TokenUsage reports token consumption for a single provider call.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// CallResponse is the provider-neutral result shape. Fallback responses
// synthesized by the orchestrator use the same structure so downstream
// consumers never need to branch.
type CallResponse struct {
	Choices  []Choice   `json:"choices"`
	Model    string     `json:"model,omitempty"`
	Provider string     `json:"provider,omitempty"`
	Usage    TokenUsage `json:"usage"`
	Fallback bool       `json:"fallback,omitempty"`
}

// Content returns the text of the first choice, or "" when empty.
func (r *CallResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// CallIntelligence is the deterministic pre-flight analysis of a request.
type CallIntelligence struct {
	Complexity       float64 `json:"complexity"`
	RequiresContext  bool    `json:"requiresContext"`
	IsCreative       bool    `json:"isCreative"`
	IsTimeSensitive  bool    `json:"isTimeSensitive"`
	CanUseLocal      bool    `json:"canUseLocal"`
	EstimatedQuality float64 `json:"estimatedQuality"`
	CostBenefit      float64 `json:"costBenefit"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
