package model

// Fragment is a contiguous span of text from one page of one source PDF.
type Fragment struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Source        string   `json:"source"`
	Page          int      `json:"page"`
	StartIndex    int      `json:"start_index"`
	Organizations []string `json:"organizations"`
}

// HasAnyOrganization reports whether the fragment is tagged with at least
// one of the given organization names.
func (f Fragment) HasAnyOrganization(names []string) bool {
	for _, tag := range f.Organizations {
		for _, n := range names {
			if tag == n {
				return true
			}
		}
	}
	return false
}

// ScoredFragment pairs a fragment with its similarity to a query.
type ScoredFragment struct {
	Fragment
	Score float64 `json:"score"`
}
