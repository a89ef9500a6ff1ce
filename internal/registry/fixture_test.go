package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-qa/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuestionsFromFile(t *testing.T) {
	path := writeFile(t, `[
		{"text": "What was the total revenue of \"Acme Corp\" in 2022?", "kind": "number"},
		{"text": "Who is the CEO of Beta Ltd?", "kind": "name"},
		{"text": "Did Gamma plc pay dividends?", "kind": "boolean"},
		{"text": "Which board members left Delta Group?", "kind": "names"}
	]`)

	got, err := LoadQuestionsFromFile(path)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, model.KindNumber, got[0].Kind)
	assert.Equal(t, `What was the total revenue of "Acme Corp" in 2022?`, got[0].Text)
	assert.Equal(t, model.KindName, got[1].Kind)
	assert.Equal(t, model.KindBoolean, got[2].Kind)
	assert.Equal(t, model.KindNames, got[3].Kind)
}

func TestLoadQuestionsFromFile_NotFound(t *testing.T) {
	_, err := LoadQuestionsFromFile("/nonexistent/questions.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry: read questions file")
}

func TestParseQuestions_Invalid(t *testing.T) {
	tests := map[string]string{
		"not an array":  `{"text": "q", "kind": "number"}`,
		"unknown kind":  `[{"text": "q", "kind": "date"}]`,
		"missing kind":  `[{"text": "q"}]`,
		"empty text":    `[{"text": "", "kind": "name"}]`,
		"text not text": `[{"text": 3, "kind": "name"}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuestions([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestParseQuestions_Malformed(t *testing.T) {
	_, err := ParseQuestions([]byte(`[{"text":`))
	require.Error(t, err)
}

func TestParseQuestions_Empty(t *testing.T) {
	got, err := ParseQuestions([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTexts(t *testing.T) {
	qs := []model.Question{{Text: "a"}, {Text: "b"}}
	assert.Equal(t, []string{"a", "b"}, Texts(qs))
}
