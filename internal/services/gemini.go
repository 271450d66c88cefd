package services

import (
	"context"
	"fmt"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"google.golang.org/genai"
)

// GeminiProvider dispatches calls to the Google Gemini API.
type GeminiProvider struct {
	cfg config.GeminiConfig
}

func NewGeminiProvider(cfg config.GeminiConfig) *GeminiProvider {
	return &GeminiProvider{cfg: cfg}
}

func (p *GeminiProvider) Name() string       { return "gemini" }
func (p *GeminiProvider) Kind() ProviderKind { return KindCloud }

func (p *GeminiProvider) Available(ctx context.Context) bool {
	return p.cfg.APIKey != ""
}

func (p *GeminiProvider) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: p.cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client error: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	// Gemini keeps the system instruction out of the turn list and only
	// knows "user" and "model" roles.
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.temperature())),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if genConfig.SystemInstruction == nil {
				genConfig.SystemInstruction = &genai.Content{}
			}
			genConfig.SystemInstruction.Parts = append(genConfig.SystemInstruction.Parts,
				&genai.Part{Text: m.Content})
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}

	usage := TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CallResponse{
		Choices: []Choice{{Message: Message{
			Role:    RoleAssistant,
			Content: resp.Text(),
		}}},
		Model:    model,
		Provider: p.Name(),
		Usage:    usage,
	}, nil
}

func (p *GeminiProvider) EstimateTokens(req CallRequest) int {
	return EstimateTokens("", req.Messages)
}

func (p *GeminiProvider) EstimateCost(tokens int, model string) float64 {
	if model == "" {
		model = p.cfg.Model
	}
	return EstimateCostUSD(tokens, model)
}
