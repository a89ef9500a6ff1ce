// Package answer turns retrieved fragments into a cited, typed answer.
package answer

import (
	"fmt"
	"strings"

	"github.com/sells-group/report-qa/internal/model"
)

// BuildContext renders fragments as numbered chunk blocks. The chunk number
// is the fragment's position in the slice.
func BuildContext(fragments []model.Fragment) string {
	blocks := make([]string, len(fragments))
	for i, f := range fragments {
		blocks[i] = fmt.Sprintf("[CHUNK %d]\n%s", i, f.Text)
	}
	return strings.Join(blocks, "\n\n")
}

const answerPrompt = `You are an assistant that extracts data from documents.

Answer the question using ONLY one fragment of the context.

Return the answer STRICTLY as JSON: {"value": <answer>, "chunk_id": <fragment number>}

Rules:
- chunk_id MUST be the number of the fragment the answer was taken from.
- If the information is present you MUST choose one fragment.
- chunk_id may be null only when the answer is "N/A".
- "N/A" is allowed ONLY if no fragment contains the answer.
- The value format must strictly match kind: %s.
- No text outside the JSON.
Answer formats:
number: digits only (e.g. 122233, decimal number 0.25). No spaces, letters or percent signs.
name: a single name.
names: several names separated by comma and space (Name One, Name Two).
boolean: only true or false in lowercase.

Question:
%s

Context:
%s`

// BuildPrompt embeds the question, its kind and the context.
func BuildPrompt(q model.Question, context string) string {
	return fmt.Sprintf(answerPrompt, q.Kind, q.Text, context)
}
