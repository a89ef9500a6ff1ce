package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Registry is the sorted, deduplicated set of normalized organization
// names. It is read-only once built.
type Registry struct {
	names []string
}

// NewRegistry builds a registry from names as given. Duplicates and empty
// strings are dropped; the result is sorted.
func NewRegistry(names []string) *Registry {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return &Registry{names: out}
}

// Names returns a copy of the registry entries in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.names) }

// Contains reports whether name is an entry.
func (r *Registry) Contains(name string) bool {
	i := sort.SearchStrings(r.names, name)
	return i < len(r.names) && r.names[i] == name
}

// BuildRegistry runs rec over every text and unions the normalized names.
// Any recognizer failure aborts the build.
func BuildRegistry(ctx context.Context, rec Recognizer, texts []string) (*Registry, error) {
	var all []string
	for i, text := range texts {
		orgs, err := rec.ExtractOrganizations(ctx, text)
		if err != nil {
			return nil, eris.Wrapf(err, "entity: build registry (text %d)", i)
		}
		for _, o := range orgs {
			if n := Normalize(o); n != "" {
				all = append(all, n)
			}
		}
	}

	reg := NewRegistry(all)
	zap.L().Info("entity: registry built",
		zap.Int("texts", len(texts)),
		zap.Int("organizations", reg.Len()),
	)
	return reg, nil
}

// Save writes the registry as an indented JSON array.
func (r *Registry) Save(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.names); err != nil {
		return eris.Wrap(err, "entity: encode registry")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrap(err, "entity: write registry")
	}
	return nil
}

// LoadRegistry reads a registry previously written by Save.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "entity: read registry")
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, eris.Wrap(err, "entity: parse registry")
	}
	return NewRegistry(names), nil
}
