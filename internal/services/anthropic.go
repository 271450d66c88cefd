package services

import (
	"context"
	"fmt"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider dispatches calls to the Anthropic Messages API.
type AnthropicProvider struct {
	cfg config.AnthropicConfig
}

func NewAnthropicProvider(cfg config.AnthropicConfig) *AnthropicProvider {
	return &AnthropicProvider{cfg: cfg}
}

func (p *AnthropicProvider) Name() string       { return "anthropic" }
func (p *AnthropicProvider) Kind() ProviderKind { return KindCloud }

func (p *AnthropicProvider) Available(ctx context.Context) bool {
	return p.cfg.APIKey != ""
}

func (p *AnthropicProvider) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(p.cfg.APIKey),
	)

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = int64(p.cfg.MaxTokens)
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}

	// The Messages API takes system prompts out of band.
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		System:      system,
		Temperature: anthropic.Float(req.temperature()),
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	// Extract text content from response
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &CallResponse{
		Choices: []Choice{{Message: Message{
			Role:    RoleAssistant,
			Content: content,
		}}},
		Model:    model,
		Provider: p.Name(),
		Usage: TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func (p *AnthropicProvider) EstimateTokens(req CallRequest) int {
	// Anthropic models are not in the tiktoken registry; cl100k_base is a
	// close enough proxy for guardrail estimates.
	return EstimateTokens("", req.Messages)
}

func (p *AnthropicProvider) EstimateCost(tokens int, model string) float64 {
	if model == "" {
		model = p.cfg.Model
	}
	return EstimateCostUSD(tokens, model)
}
