package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
// DeepSeek is the default target.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAI creates an OpenAI-compatible generator.
func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.Key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	} else {
		clientConfig.BaseURL = DefaultOpenAIBaseURL
	}

	m := cfg.Model
	if m == "" {
		m = DefaultOpenAIModel
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       m,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Stream:      false,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: openai returned no choices")
	}

	zap.L().Debug("llm: completion",
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.Usage.PromptTokens),
		zap.Int("output_tokens", resp.Usage.CompletionTokens),
	)

	return &Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
