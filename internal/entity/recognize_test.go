package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-qa/internal/llm"
)

// fakeGenerator returns canned replies keyed by call order.
type fakeGenerator struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (*llm.Response, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return &llm.Response{Text: reply}, nil
}

func TestLLMRecognizer_ParsesArray(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"```json\n[\"Acme Corp\", \" Beta Ltd \", \"Acme Corp\"]\n```"}}
	rec := NewLLMRecognizer(gen)

	orgs, err := rec.ExtractOrganizations(context.Background(), "Did Acme Corp beat Beta Ltd?")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Acme Corp", "Beta Ltd"}, orgs)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Did Acme Corp beat Beta Ltd?")
}

func TestLLMRecognizer_EmptyArray(t *testing.T) {
	rec := NewLLMRecognizer(&fakeGenerator{replies: []string{"[]"}})

	orgs, err := rec.ExtractOrganizations(context.Background(), "What is the weather?")
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestLLMRecognizer_MalformedIsError(t *testing.T) {
	rec := NewLLMRecognizer(&fakeGenerator{replies: []string{"I found Acme."}})

	_, err := rec.ExtractOrganizations(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity: parse recognizer reply")
}

func TestLLMRecognizer_GeneratorError(t *testing.T) {
	rec := NewLLMRecognizer(&fakeGenerator{err: assert.AnError})

	_, err := rec.ExtractOrganizations(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity: recognize organizations")
}

func TestExtractJSONArray(t *testing.T) {
	assert.Equal(t, `["a"]`, extractJSONArray(`["a"]`))
	assert.Equal(t, `["a"]`, extractJSONArray("```json\n[\"a\"]\n```"))
	assert.Equal(t, `["a", "b"]`, extractJSONArray(`Sure: ["a", "b"] done`))
	assert.Equal(t, "nothing", extractJSONArray("nothing"))
}

func TestPatternRecognizer(t *testing.T) {
	rec := PatternRecognizer{}
	ctx := context.Background()

	tests := []struct {
		text string
		want []string
	}{
		{`Did "Acme Widgets" report a profit in 2022?`, []string{"Acme Widgets"}},
		{`What was the revenue of Northwind Traders Inc. in 2022?`, []string{"Northwind Traders Inc."}},
		{`Is Acme Corp profitable?`, []string{"Acme Corp"}},
		{`Which of the companies had the higher equity: «Газпром» or Beta Group?`, []string{"Газпром", "Beta Group"}},
		{`How much cash does it hold?`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := rec.ExtractOrganizations(ctx, tt.text)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestNewRecognizer(t *testing.T) {
	r, err := NewRecognizer("pattern", nil)
	require.NoError(t, err)
	assert.IsType(t, PatternRecognizer{}, r)

	r, err = NewRecognizer("llm", &fakeGenerator{replies: []string{"[]"}})
	require.NoError(t, err)
	assert.IsType(t, &LLMRecognizer{}, r)

	_, err = NewRecognizer("llm", nil)
	assert.Error(t, err)

	_, err = NewRecognizer("spacy", nil)
	assert.Error(t, err)
}
