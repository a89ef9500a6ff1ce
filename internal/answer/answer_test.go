package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-qa/internal/llm"
	"github.com/sells-group/report-qa/internal/model"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (*llm.Response, error) {
	args := m.Called(ctx, prompt)
	if v := args.Get(0); v != nil {
		return v.(*llm.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Retrieve(ctx context.Context, question string, companies []string) ([]model.Fragment, error) {
	args := m.Called(ctx, question, companies)
	if v := args.Get(0); v != nil {
		return v.([]model.Fragment), args.Error(1)
	}
	return nil, args.Error(1)
}

func threeFragments() []model.Fragment {
	return []model.Fragment{
		{Text: "zero", Source: "pdfs/aaa111.pdf", Page: 0},
		{Text: "one", Source: "pdfs/bbb222.pdf", Page: 4},
		{Text: "two", Source: "pdfs/sub/ccc333.pdf", Page: 7},
	}
}

func intPtr(i int) *int { return &i }

// --- Context / prompt ---

func TestBuildContext(t *testing.T) {
	got := BuildContext([]model.Fragment{{Text: "alpha"}, {Text: "beta"}})
	assert.Equal(t, "[CHUNK 0]\nalpha\n\n[CHUNK 1]\nbeta", got)
}

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(model.Question{Text: "How many employees?", Kind: model.KindNumber}, "[CHUNK 0]\nctx")
	assert.Contains(t, p, "kind: number.")
	assert.Contains(t, p, "Question:\nHow many employees?")
	assert.Contains(t, p, "Context:\n[CHUNK 0]\nctx")
	assert.Contains(t, p, `{"value": <answer>, "chunk_id": <fragment number>}`)
}

// --- ParseResponse ---

func TestParseResponse_Valid(t *testing.T) {
	p := ParseResponse(`{"value": "42", "chunk_id": 2}`)
	assert.Equal(t, "42", p.Value)
	require.NotNil(t, p.ChunkID)
	assert.Equal(t, 2, *p.ChunkID)
}

func TestParseResponse_NotJSON(t *testing.T) {
	p := ParseResponse("not json")
	assert.Equal(t, model.NotAvailable, p.Value)
	assert.Nil(t, p.ChunkID)
}

func TestParseResponse_MissingValue(t *testing.T) {
	p := ParseResponse(`{"chunk_id": 1}`)
	assert.Equal(t, model.NotAvailable, p.Value)
	assert.Nil(t, p.ChunkID)
}

func TestParseResponse_NullChunk(t *testing.T) {
	p := ParseResponse(`{"value": "N/A", "chunk_id": null}`)
	assert.Equal(t, "N/A", p.Value)
	assert.Nil(t, p.ChunkID)
}

func TestParseResponse_NoChunkKey(t *testing.T) {
	p := ParseResponse(`{"value": true}`)
	assert.Equal(t, true, p.Value)
	assert.Nil(t, p.ChunkID)
}

func TestParseResponse_ChunkIDForms(t *testing.T) {
	for raw, want := range map[string]int{
		`{"value": "x", "chunk_id": "3"}`: 3,
		`{"value": "x", "chunk_id": 3.0}`: 3,
		`{"value": "x", "chunk_id": 0}`:   0,
	} {
		p := ParseResponse(raw)
		require.NotNil(t, p.ChunkID, raw)
		assert.Equal(t, want, *p.ChunkID, raw)
	}
}

func TestParseResponse_NonIntegerChunk(t *testing.T) {
	for _, raw := range []string{
		`{"value": "x", "chunk_id": 1.5}`,
		`{"value": "x", "chunk_id": "first"}`,
		`{"value": "x", "chunk_id": [1]}`,
	} {
		p := ParseResponse(raw)
		assert.Equal(t, model.NotAvailable, p.Value, raw)
		assert.Nil(t, p.ChunkID, raw)
	}
}

func TestParseResponse_CodeFence(t *testing.T) {
	p := ParseResponse("```json\n{\"value\": \"Acme\", \"chunk_id\": 1}\n```")
	assert.Equal(t, "Acme", p.Value)
	require.NotNil(t, p.ChunkID)
	assert.Equal(t, 1, *p.ChunkID)
}

func TestParseResponse_NotAnObject(t *testing.T) {
	p := ParseResponse(`[1, 2]`)
	assert.Equal(t, model.NotAvailable, p.Value)
}

// --- BuildReferences ---

func TestBuildReferences_Valid(t *testing.T) {
	refs := BuildReferences("42", threeFragments(), intPtr(2))
	require.Len(t, refs, 1)
	assert.Equal(t, "ccc333", refs[0].PDFSHA1)
	assert.Equal(t, 7, refs[0].PageIndex)
}

func TestBuildReferences_Empty(t *testing.T) {
	cases := map[string]struct {
		value     any
		fragments []model.Fragment
		chunk     *int
	}{
		"not available":  {model.NotAvailable, threeFragments(), intPtr(0)},
		"no fragments":   {"x", nil, intPtr(0)},
		"nil chunk":      {"x", threeFragments(), nil},
		"negative chunk": {"x", threeFragments(), intPtr(-1)},
		"out of range":   {"x", threeFragments(), intPtr(3)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			refs := BuildReferences(tc.value, tc.fragments, tc.chunk)
			assert.NotNil(t, refs)
			assert.Empty(t, refs)
		})
	}
}

func TestBuildReferences_BooleanValueCited(t *testing.T) {
	refs := BuildReferences(false, threeFragments(), intPtr(0))
	require.Len(t, refs, 1)
	assert.Equal(t, "aaa111", refs[0].PDFSHA1)
}

// --- Coerce ---

func TestCoerce_Boolean(t *testing.T) {
	assert.Equal(t, true, Coerce("TRUE", model.KindBoolean))
	assert.Equal(t, true, Coerce(true, model.KindBoolean))
	assert.Equal(t, false, Coerce("yes", model.KindBoolean))
	assert.Equal(t, false, Coerce(model.NotAvailable, model.KindBoolean))
	assert.Equal(t, false, Coerce(false, model.KindBoolean))
}

func TestCoerce_Number(t *testing.T) {
	assert.Equal(t, 42.0, Coerce("42", model.KindNumber))
	assert.Equal(t, 0.25, Coerce(" 0.25 ", model.KindNumber))
	assert.Equal(t, 1e6, Coerce(ParseResponse(`{"value": 1000000}`).Value, model.KindNumber))
	assert.Equal(t, model.NotAvailable, Coerce("12%", model.KindNumber))
	assert.Equal(t, model.NotAvailable, Coerce(model.NotAvailable, model.KindNumber))
	assert.Equal(t, model.NotAvailable, Coerce("NaN", model.KindNumber))
	assert.Equal(t, 1.0, Coerce(true, model.KindNumber))
	assert.Equal(t, 0.0, Coerce(false, model.KindNumber))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	// "é" is two bytes; cutting at 2 would split it.
	assert.Equal(t, "a...", truncate("aéb", 2))
	assert.True(t, utf8.ValidString(truncate("Газпром", 5)))
}

func TestCoerce_Strings(t *testing.T) {
	assert.Equal(t, "Acme", Coerce("Acme", model.KindName))
	assert.Equal(t, "42", Coerce(ParseResponse(`{"value": 42}`).Value, model.KindName))
	assert.Equal(t, "Jane Doe, John Roe", Coerce([]any{"Jane Doe", "John Roe"}, model.KindNames))
	assert.Equal(t, "true", Coerce(true, model.KindName))
}

func TestParseAndCoerce_RoundTrip(t *testing.T) {
	p := ParseResponse(`{"value": "42", "chunk_id": 2}`)
	assert.Equal(t, 42.0, Coerce(p.Value, model.KindNumber))
	refs := BuildReferences(p.Value, threeFragments(), p.ChunkID)
	require.Len(t, refs, 1)
	assert.Equal(t, "ccc333", refs[0].PDFSHA1)
}

func TestMalformed_RoundTrip(t *testing.T) {
	p := ParseResponse("not json")
	assert.Equal(t, model.NotAvailable, p.Value)
	assert.Nil(t, p.ChunkID)
	assert.Empty(t, BuildReferences(p.Value, threeFragments(), p.ChunkID))
	assert.Equal(t, false, Coerce(p.Value, model.KindBoolean))
}

// --- Extractor ---

func TestExtractor_Answer(t *testing.T) {
	q := model.Question{Text: "How many stores does Acme operate? Give a number.", Kind: model.KindNumber}
	frags := threeFragments()

	ret := new(mockRetriever)
	ret.On("Retrieve", mock.Anything, q.Text, []string{"Acme"}).Return(frags, nil)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return assertContainsAll(p, "[CHUNK 2]\ntwo", "kind: number", q.Text)
	})).Return(&llm.Response{Text: `{"value": "120", "chunk_id": 1}`, Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 3}}, nil)

	ex := NewExtractor([]string{"Acme", "Globex"}, ret, gen)
	a, err := ex.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, q.Text, a.QuestionText)
	assert.Equal(t, 120.0, a.Value)
	require.Len(t, a.References, 1)
	assert.Equal(t, "bbb222", a.References[0].PDFSHA1)
	assert.Equal(t, 4, a.References[0].PageIndex)

	ret.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestExtractor_Answer_MalformedReplyDegrades(t *testing.T) {
	q := model.Question{Text: "Did Globex pay dividends?", Kind: model.KindBoolean}
	ret := new(mockRetriever)
	ret.On("Retrieve", mock.Anything, q.Text, []string{"Globex"}).Return(threeFragments(), nil)
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&llm.Response{Text: "I think so"}, nil)

	a, err := NewExtractor([]string{"Globex"}, ret, gen).Answer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, false, a.Value)
	assert.NotNil(t, a.References)
	assert.Empty(t, a.References)
}

func TestExtractor_Answer_GenerateErrorPropagates(t *testing.T) {
	q := model.Question{Text: "Who is the CEO of Acme?", Kind: model.KindName}
	ret := new(mockRetriever)
	ret.On("Retrieve", mock.Anything, q.Text, []string{"Acme"}).Return(threeFragments(), nil)
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewExtractor([]string{"Acme"}, ret, gen).Answer(context.Background(), q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExtractor_AnswerAll_SequentialOrder(t *testing.T) {
	qs := []model.Question{
		{Text: "Q1 Acme?", Kind: model.KindName},
		{Text: "Q2 Acme?", Kind: model.KindName},
	}
	ret := new(mockRetriever)
	ret.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return(threeFragments(), nil)
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: `{"value": "first", "chunk_id": 0}`, Usage: model.TokenUsage{InputTokens: 5}}, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: `{"value": "second", "chunk_id": 1}`, Usage: model.TokenUsage{InputTokens: 7}}, nil).Once()

	answers, usage, err := NewExtractor([]string{"Acme"}, ret, gen).AnswerAll(context.Background(), qs)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "Q1 Acme?", answers[0].QuestionText)
	assert.Equal(t, "first", answers[0].Value)
	assert.Equal(t, "second", answers[1].Value)
	assert.Equal(t, 12, usage.InputTokens)
	gen.AssertExpectations(t)
}

func TestExtractor_AnswerAll_AbortsOnError(t *testing.T) {
	qs := []model.Question{{Text: "a", Kind: model.KindName}, {Text: "b", Kind: model.KindName}}
	ret := new(mockRetriever)
	ret.On("Retrieve", mock.Anything, "a", mock.Anything).Return(nil, errors.New("index missing"))

	_, _, err := NewExtractor(nil, ret, new(mockGenerator)).AnswerAll(context.Background(), qs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question 0")
	ret.AssertNotCalled(t, "Retrieve", mock.Anything, "b", mock.Anything)
}

func assertContainsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
