package services

import (
	"context"
	"fmt"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider dispatches calls to the OpenAI chat completion API. A
// custom BaseURL points it at any OpenAI-compatible gateway.
type OpenAIProvider struct {
	cfg config.OpenAIConfig
}

func NewOpenAIProvider(cfg config.OpenAIConfig) *OpenAIProvider {
	return &OpenAIProvider{cfg: cfg}
}

func (p *OpenAIProvider) Name() string       { return "openai" }
func (p *OpenAIProvider) Kind() ProviderKind { return KindCloud }

// Available reports whether credentials are configured. Cloud adapters do
// not probe the network here; a dead endpoint surfaces as a call error and
// goes through the retry path instead.
func (p *OpenAIProvider) Available(ctx context.Context) bool {
	return p.cfg.APIKey != ""
}

func (p *OpenAIProvider) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	clientConfig := openai.DefaultConfig(p.cfg.APIKey)
	if p.cfg.BaseURL != "" {
		clientConfig.BaseURL = p.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openaiRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.temperature()),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &CallResponse{
		Choices: []Choice{{Message: Message{
			Role:    RoleAssistant,
			Content: resp.Choices[0].Message.Content,
		}}},
		Model:    resp.Model,
		Provider: p.Name(),
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (p *OpenAIProvider) EstimateTokens(req CallRequest) int {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	return EstimateTokens(model, req.Messages)
}

func (p *OpenAIProvider) EstimateCost(tokens int, model string) float64 {
	if model == "" {
		model = p.cfg.Model
	}
	return EstimateCostUSD(tokens, model)
}

func openaiRole(role string) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
