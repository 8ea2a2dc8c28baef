package triage

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spec-kit/ticket-ai/internal/config"
)

const systemPrompt = `You are an expert AI assistant that processes technical support tickets.
Your job is to analyze tickets and return a JSON object with the following structure:
{
  "summary": "Brief summary of the issue",
  "priority": "low/medium/high",
  "helpfulNotes": "Technical explanation and resources",
  "relatedSkills": ["skill1", "skill2"]
}`

// AnthropicAnalyzer calls the Anthropic Messages API.
type AnthropicAnalyzer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnalyzer returns an Anthropic-backed analyzer, or one that always
// reports ErrDisabled when no API key is configured.
func NewAnalyzer(cfg config.TriageConfig) Analyzer {
	if cfg.APIKey == "" {
		return disabled{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &AnthropicAnalyzer{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Analyze sends the ticket to the model and validates the reply.
func (a *AnthropicAnalyzer) Analyze(ctx context.Context, req Request) (Assessment, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("triage call: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Assessment{}, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	return ParseResponse(text.String())
}

func buildPrompt(req Request) string {
	return fmt.Sprintf(`Analyze this support ticket and return a JSON object:
Title: %s
Description: %s

Return ONLY a JSON object with these fields:
- summary: Brief summary of the issue
- priority: One of "low", "medium", or "high"
- helpfulNotes: Technical explanation and resources
- relatedSkills: Array of relevant technical skills`, req.Title, req.Description)
}
