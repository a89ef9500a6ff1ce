// Package llm provides single-turn text generation over several model APIs.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
)

// Generator sends one prompt as a single user message and returns the
// model's text reply. Calls are synchronous and never streamed or retried.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
}

// Response is a model reply.
type Response struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Default model identifiers per provider.
const (
	DefaultOpenAIModel    = "deepseek-chat"
	DefaultOpenAIBaseURL  = "https://api.deepseek.com"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultGeminiModel    = "gemini-2.5-flash"
)

// ModelFor returns the model identifier cfg resolves to.
func ModelFor(cfg config.LLMConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "claude":
		return DefaultAnthropicModel
	case "gemini", "google":
		return DefaultGeminiModel
	default:
		return DefaultOpenAIModel
	}
}

// New builds the Generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	if cfg.Key == "" {
		return nil, eris.New("llm: api key is required")
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai", "deepseek", "":
		return NewOpenAI(cfg), nil
	case "anthropic", "claude":
		return NewAnthropic(cfg), nil
	case "gemini", "google":
		return NewGemini(ctx, cfg)
	default:
		return nil, eris.Errorf("llm: unknown provider %q (supported: openai, anthropic, gemini)", cfg.Provider)
	}
}
