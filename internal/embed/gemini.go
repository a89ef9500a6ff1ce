package embed

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/report-qa/internal/config"
)

const defaultGeminiEmbedModel = "text-embedding-004"

// Gemini embeds text with the Gemini embedContent API.
type Gemini struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// NewGemini creates a Gemini embedder.
func NewGemini(ctx context.Context, cfg config.EmbedConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "embed: create gemini client")
	}

	m := cfg.Model
	if m == "" {
		m = defaultGeminiEmbedModel
	}
	return &Gemini{client: client, model: m, dimensions: int32(cfg.Dimensions)}, nil
}

// Embed implements Embedder.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	var ec *genai.EmbedContentConfig
	if g.dimensions > 0 {
		ec = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(g.dimensions)}
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, ec)
	if err != nil {
		return nil, eris.Wrap(err, "embed: gemini embed content")
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, eris.Errorf("embed: gemini returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		Normalize(e.Values)
		out[i] = e.Values
	}
	return out, nil
}
