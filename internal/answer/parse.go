package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/model"
)

// Parsed is a decoded model reply. ChunkID is nil when the model cited no
// fragment.
type Parsed struct {
	Value   any
	ChunkID *int
}

func notAvailable() Parsed {
	return Parsed{Value: model.NotAvailable}
}

// ParseResponse decodes a {"value", "chunk_id"} reply. Any malformed reply
// yields N/A with no chunk; it never fails.
func ParseResponse(raw string) Parsed {
	dec := json.NewDecoder(strings.NewReader(cleanJSON(raw)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		zap.L().Debug("answer: unparseable model reply", zap.Error(err), zap.String("raw", truncate(raw, 200)))
		return notAvailable()
	}

	value, ok := obj["value"]
	if !ok || value == nil {
		return notAvailable()
	}

	p := Parsed{Value: value}
	if rawID, ok := obj["chunk_id"]; ok && rawID != nil {
		id, ok := parseChunkID(rawID)
		if !ok {
			zap.L().Debug("answer: non-integer chunk_id", zap.Any("chunk_id", rawID))
			return notAvailable()
		}
		p.ChunkID = &id
	}
	return p
}

// parseChunkID accepts integral JSON numbers and integer strings.
func parseChunkID(v any) (int, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// cleanJSON strips markdown code fences and surrounding prose from a JSON
// object reply.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// BuildReferences cites the fragment at chunkID. The result is empty
// unless the value is available and chunkID is a valid position.
func BuildReferences(value any, fragments []model.Fragment, chunkID *int) []model.Reference {
	refs := []model.Reference{}
	if s, ok := value.(string); ok && s == model.NotAvailable {
		return refs
	}
	if len(fragments) == 0 || chunkID == nil || *chunkID < 0 || *chunkID >= len(fragments) {
		return refs
	}
	f := fragments[*chunkID]
	base := filepath.Base(f.Source)
	return append(refs, model.Reference{
		PDFSHA1:   strings.TrimSuffix(base, filepath.Ext(base)),
		PageIndex: f.Page,
	})
}

// Coerce converts a model value to the type expected by kind.
func Coerce(value any, kind model.Kind) any {
	switch kind {
	case model.KindBoolean:
		return strings.ToLower(stringForm(value)) == "true"
	case model.KindNumber:
		var f float64
		var err error
		if b, ok := value.(bool); ok {
			if b {
				f = 1
			}
		} else if n, ok := value.(json.Number); ok {
			f, err = n.Float64()
		} else {
			f, err = strconv.ParseFloat(strings.TrimSpace(stringForm(value)), 64)
		}
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return model.NotAvailable
		}
		return f
	default:
		return stringForm(value)
	}
}

// stringForm renders a decoded JSON value as text. Lists become a comma
// separated string.
func stringForm(v any) string {
	switch t := v.(type) {
	case nil:
		return model.NotAvailable
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringForm(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSpace(buf.String())
	default:
		return fmt.Sprint(t)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
