package model

import "github.com/rotisserie/eris"

// Kind is the expected answer type of a question.
type Kind string

const (
	KindNumber  Kind = "number"
	KindName    Kind = "name"
	KindNames   Kind = "names"
	KindBoolean Kind = "boolean"
)

// AllKinds returns every answer kind.
func AllKinds() []Kind {
	return []Kind{KindNumber, KindName, KindNames, KindBoolean}
}

// ParseKind converts a raw kind string, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", eris.Errorf("model: unknown question kind %q", s)
}

// Question is a single natural-language query over the corpus.
type Question struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// TokenUsage tracks token consumption of a model call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
}
