package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
)

// Gemini generates answers with the Google Gemini API. Replies are
// requested as JSON since every prompt in this tool asks for JSON.
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}

	m := cfg.Model
	if m == "" {
		m = DefaultGeminiModel
	}

	return &Gemini{
		client:      client,
		model:       m,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, prompt string) (*Response, error) {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		gc.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), gc)
	if err != nil {
		return nil, eris.Wrap(err, "llm: gemini generate content")
	}

	out := &Response{Text: resp.Text(), Model: g.model}
	if resp.UsageMetadata != nil {
		out.Usage = model.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
