package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"github.com/ollama/ollama/api"
)

// OllamaProvider dispatches calls to a local Ollama daemon. It is the only
// local-kind provider and the target of the cost-saving routing path.
type OllamaProvider struct {
	cfg config.OllamaConfig
}

func NewOllamaProvider(cfg config.OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &OllamaProvider{cfg: cfg}
}

func (p *OllamaProvider) Name() string       { return "ollama" }
func (p *OllamaProvider) Kind() ProviderKind { return KindLocal }

func (p *OllamaProvider) client() (*api.Client, error) {
	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

// Available probes the local daemon with a short timeout.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	client, err := p.client()
	if err != nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Heartbeat(probeCtx) == nil
}

func (p *OllamaProvider) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	if p.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	// Ollama streams chunks; accumulate them into a single response and
	// pick up token counts from the final chunk.
	var content strings.Builder
	usage := TokenUsage{}
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Options: map[string]interface{}{
			"temperature": req.temperature(),
			"num_predict": req.MaxTokens,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			usage.PromptTokens = resp.PromptEvalCount
			usage.CompletionTokens = resp.EvalCount
			usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama call failed: %w", err)
	}

	return &CallResponse{
		Choices: []Choice{{Message: Message{
			Role:    RoleAssistant,
			Content: content.String(),
		}}},
		Model:    model,
		Provider: p.Name(),
		Usage:    usage,
	}, nil
}

func (p *OllamaProvider) EstimateTokens(req CallRequest) int {
	return EstimateTokens("", req.Messages)
}

// EstimateCost reports zero; local inference has no per-token cost.
func (p *OllamaProvider) EstimateCost(tokens int, model string) float64 {
	return 0
}
