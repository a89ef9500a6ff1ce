// Package submission assembles, saves and uploads answer submissions.
package submission

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/model"
)

// Builder accumulates submission records in input order.
type Builder struct {
	teamEmail string
	name      string
	answers   []model.Answer
}

// NewBuilder creates a Builder for the given team and submission name.
func NewBuilder(teamEmail, name string) *Builder {
	return &Builder{teamEmail: teamEmail, name: name}
}

// Add appends records.
func (b *Builder) Add(answers ...model.Answer) {
	b.answers = append(b.answers, answers...)
}

// Len returns the number of accumulated records.
func (b *Builder) Len() int { return len(b.answers) }

// Build returns the submission document.
func (b *Builder) Build() model.Submission {
	answers := make([]model.Answer, len(b.answers))
	copy(answers, b.answers)
	for i := range answers {
		if answers[i].References == nil {
			answers[i].References = []model.Reference{}
		}
	}
	return model.Submission{
		TeamEmail:      b.teamEmail,
		SubmissionName: b.name,
		Answers:        answers,
	}
}

// Marshal renders sub as indented JSON without HTML escaping.
func Marshal(sub model.Submission) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sub); err != nil {
		return nil, eris.Wrap(err, "submission: marshal")
	}
	return buf.Bytes(), nil
}

// Save writes sub to path.
func Save(path string, sub model.Submission) error {
	data, err := Marshal(sub)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "submission: write %s", path)
	}
	return nil
}

// Load reads a submission file written by Save.
func Load(path string) (*model.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "submission: read %s", path)
	}
	var sub model.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, eris.Wrapf(err, "submission: parse %s", path)
	}
	return &sub, nil
}
