package embed

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	"github.com/sells-group/report-qa/internal/config"
)

// OpenAI calls an OpenAI-compatible /embeddings endpoint, such as a local
// text-embeddings-inference server hosting a sentence-transformers model.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-compatible embedder.
func NewOpenAI(cfg config.EmbedConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.Key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, eris.Wrap(err, "embed: openai create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("embed: openai returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		Normalize(d.Embedding)
		out[i] = d.Embedding
	}
	return out, nil
}
