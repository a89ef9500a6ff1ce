// Package registry loads the question set that drives a run.
package registry

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/report-qa/internal/model"
)

// questionsSchema describes the questions file: a JSON array of
// {"text": string, "kind": one of the answer kinds}.
const questionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["text", "kind"],
    "properties": {
      "text": {"type": "string", "minLength": 1},
      "kind": {"type": "string", "enum": ["number", "name", "names", "boolean"]}
    }
  }
}`

// LoadQuestionsFromFile reads and validates a JSON array of model.Question
// from the given path. Any schema violation is an error.
func LoadQuestionsFromFile(path string) ([]model.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read questions file")
	}
	return ParseQuestions(data)
}

// ParseQuestions validates and decodes a questions document.
func ParseQuestions(data []byte) ([]model.Question, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(questionsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, eris.Wrap(err, "registry: validate questions")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, eris.Errorf("registry: invalid questions file: %s", strings.Join(msgs, "; "))
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal questions")
	}
	return questions, nil
}

// Texts returns the question texts in input order.
func Texts(questions []model.Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.Text
	}
	return out
}
