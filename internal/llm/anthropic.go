package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/pkg/anthropic"
)

// Anthropic generates answers with the Claude Messages API.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic creates a Claude-backed generator. SDK retries are disabled
// so that a failed call surfaces immediately.
func NewAnthropic(cfg config.LLMConfig) *Anthropic {
	opts := []anthropic.Option{anthropic.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return NewAnthropicWithClient(anthropic.NewClient(cfg.Key, opts...), cfg)
}

// NewAnthropicWithClient wraps an existing client.
func NewAnthropicWithClient(client anthropic.Client, cfg config.LLMConfig) *Anthropic {
	m := cfg.Model
	if m == "" {
		m = DefaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Anthropic{
		client:      client,
		model:       m,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate implements Generator.
func (a *Anthropic) Generate(ctx context.Context, prompt string) (*Response, error) {
	temp := a.temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic message")
	}
	resp.Usage.LogUsage(resp.Model, "answer")

	return &Response{
		Text:  resp.Text(),
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}
