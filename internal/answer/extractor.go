package answer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/llm"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/retrieval"
)

// Retriever selects context fragments for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, companies []string) ([]model.Fragment, error)
}

// Extractor runs the per-question answering pipeline.
type Extractor struct {
	registry  []string
	retriever Retriever
	gen       llm.Generator
}

// NewExtractor creates an Extractor. registry must be in registry order.
func NewExtractor(registry []string, retriever Retriever, gen llm.Generator) *Extractor {
	return &Extractor{registry: registry, retriever: retriever, gen: gen}
}

// Trace records the intermediate values of one answered question.
type Trace struct {
	Companies []string         `json:"companies"`
	Fragments []model.Fragment `json:"fragments"`
	Raw       string           `json:"raw"`
	Parsed    Parsed           `json:"-"`
	Usage     model.TokenUsage `json:"usage"`
}

// Answer resolves one question into a submission record. Only retrieval
// and model transport errors are returned.
func (e *Extractor) Answer(ctx context.Context, q model.Question) (model.Answer, error) {
	a, _, err := e.AnswerWithTrace(ctx, q)
	return a, err
}

// AnswerWithTrace is Answer that also returns the intermediate values.
func (e *Extractor) AnswerWithTrace(ctx context.Context, q model.Question) (model.Answer, *Trace, error) {
	companies := retrieval.ExtractQueryCompanies(q.Text, e.registry)

	fragments, err := e.retriever.Retrieve(ctx, q.Text, companies)
	if err != nil {
		return model.Answer{}, nil, eris.Wrap(err, "answer: retrieve")
	}

	prompt := BuildPrompt(q, BuildContext(fragments))
	resp, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return model.Answer{}, nil, eris.Wrap(err, "answer: generate")
	}

	parsed := ParseResponse(resp.Text)
	record := model.Answer{
		QuestionText: q.Text,
		Value:        Coerce(parsed.Value, q.Kind),
		References:   BuildReferences(parsed.Value, fragments, parsed.ChunkID),
	}

	zap.L().Debug("answer: question resolved",
		zap.String("question", q.Text),
		zap.Strings("companies", companies),
		zap.Int("fragments", len(fragments)),
		zap.Any("value", record.Value),
		zap.Int("references", len(record.References)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	return record, &Trace{
		Companies: companies,
		Fragments: fragments,
		Raw:       resp.Text,
		Parsed:    parsed,
		Usage:     resp.Usage,
	}, nil
}

// AnswerAll answers questions one at a time in input order. The first
// error aborts the batch.
func (e *Extractor) AnswerAll(ctx context.Context, questions []model.Question) ([]model.Answer, model.TokenUsage, error) {
	start := time.Now()
	var usage model.TokenUsage
	answers := make([]model.Answer, 0, len(questions))
	for i, q := range questions {
		a, trace, err := e.AnswerWithTrace(ctx, q)
		if err != nil {
			return nil, usage, eris.Wrapf(err, "answer: question %d", i)
		}
		usage.Add(trace.Usage)
		answers = append(answers, a)
		zap.L().Info("answer: progress",
			zap.Int("done", i+1),
			zap.Int("total", len(questions)),
		)
	}

	zap.L().Info("answer: batch complete",
		zap.Int("questions", len(questions)),
		zap.Int("answered", model.CountAnswered(answers)),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return answers, usage, nil
}
