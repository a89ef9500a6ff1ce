package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/llm"
)

// Recognizer finds organization mentions in free text. Results are the
// distinct, trimmed surface forms; order carries no meaning.
type Recognizer interface {
	ExtractOrganizations(ctx context.Context, text string) ([]string, error)
}

const orgPrompt = `Extract every organization (company, bank, fund, group) name mentioned in the text below.
Return ONLY a JSON array of strings, exactly as the names appear in the text. Return [] when there are none.

Text:
%s`

// LLMRecognizer delegates named-entity recognition to a language model.
type LLMRecognizer struct {
	gen llm.Generator
}

// NewLLMRecognizer creates a recognizer backed by gen.
func NewLLMRecognizer(gen llm.Generator) *LLMRecognizer {
	return &LLMRecognizer{gen: gen}
}

// ExtractOrganizations implements Recognizer. A reply that is not a JSON
// array of strings is an error.
func (r *LLMRecognizer) ExtractOrganizations(ctx context.Context, text string) ([]string, error) {
	resp, err := r.gen.Generate(ctx, fmt.Sprintf(orgPrompt, text))
	if err != nil {
		return nil, eris.Wrap(err, "entity: recognize organizations")
	}

	var names []string
	if err := json.Unmarshal([]byte(extractJSONArray(resp.Text)), &names); err != nil {
		zap.L().Debug("entity: unparseable recognizer reply", zap.String("raw", resp.Text))
		return nil, eris.Wrap(err, "entity: parse recognizer reply")
	}
	return distinctTrimmed(names), nil
}

// extractJSONArray strips markdown code fences and surrounding prose from a
// model reply, keeping the outermost [...] span.
func extractJSONArray(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start >= 0 {
		if end := strings.LastIndex(s, "]"); end > start {
			return s[start : end+1]
		}
	}
	return s
}

var (
	quotedRe   = regexp.MustCompile(`"([^"]{2,120})"|«([^»]{2,120})»|“([^”]{2,120})”`)
	suffixedRe = regexp.MustCompile(`\b((?:[A-Z][\w&'\-]*\s+){0,5}?[A-Z][\w&'\-]*),?\s+(Inc|INC|Corporation|CORPORATION|Corp|Ltd|plc|PLC|AG|SA|Group|LLC|N\.V|S\.A|S\.p\.A)\b\.?`)
)

// PatternRecognizer is an offline recognizer for question-style text. It
// picks up quoted names and capitalized word runs ending in a legal suffix.
type PatternRecognizer struct{}

// ExtractOrganizations implements Recognizer.
func (PatternRecognizer) ExtractOrganizations(_ context.Context, text string) ([]string, error) {
	var names []string
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			if g != "" {
				names = append(names, g)
			}
		}
	}
	for _, m := range suffixedRe.FindAllString(text, -1) {
		names = append(names, trimLeadingStopwords(m))
	}
	return distinctTrimmed(names), nil
}

// leadingStopwords are sentence-initial words that the capitalized-run
// pattern would otherwise absorb into a name.
var leadingStopwords = map[string]bool{
	"According": true, "Did": true, "Does": true, "Do": true, "For": true,
	"How": true, "In": true, "Is": true, "Has": true, "Had": true, "What": true,
	"Which": true, "Who": true, "When": true, "Was": true, "Were": true, "The": true,
	"Between": true, "Of": true, "If": true,
}

func trimLeadingStopwords(s string) string {
	for {
		first, rest, ok := strings.Cut(s, " ")
		if !ok || !leadingStopwords[first] {
			return s
		}
		s = strings.TrimLeft(rest, " ")
	}
}

func distinctTrimmed(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// NewRecognizer returns the recognizer named by kind ("llm" or "pattern").
// gen may be nil for the pattern recognizer.
func NewRecognizer(kind string, gen llm.Generator) (Recognizer, error) {
	switch kind {
	case "llm", "":
		if gen == nil {
			return nil, eris.New("entity: llm recognizer requires a generator")
		}
		return NewLLMRecognizer(gen), nil
	case "pattern":
		return PatternRecognizer{}, nil
	default:
		return nil, eris.Errorf("entity: unknown recognizer %q", kind)
	}
}
