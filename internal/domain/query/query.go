// Package query describes the terms aggregation request issued for a panel.
package query

import "fmt"

// Query is a dashboard query string that panels may select.
type Query struct {
	ID     int    `json:"id" yaml:"id"`
	Text   string `json:"query" yaml:"query"`
	Pinned bool   `json:"pin" yaml:"pin"`
}

// FilterType is the kind of dashboard filter.
type FilterType string

const (
	// FilterTerms matches documents whose field equals a value.
	FilterTerms FilterType = "terms"
	// FilterExists matches documents that have the field.
	FilterExists FilterType = "exists"
)

// Mandate states whether a filter must match or must not match.
type Mandate string

const (
	// Must keeps matching documents.
	Must Mandate = "must"
	// MustNot drops matching documents.
	MustNot Mandate = "mustNot"
)

// Filter is a dashboard-wide filter applied to every panel query.
type Filter struct {
	Type    FilterType `json:"type"`
	Field   string     `json:"field"`
	Value   string     `json:"value,omitempty"`
	Mandate Mandate    `json:"mandate"`
}

// NewTermsFilter creates a terms filter.
func NewTermsFilter(field, value string, mandate Mandate) (Filter, error) {
	if field == "" {
		return Filter{}, fmt.Errorf("filter field is required")
	}
	if err := mandate.validate(); err != nil {
		return Filter{}, err
	}
	return Filter{Type: FilterTerms, Field: field, Value: value, Mandate: mandate}, nil
}

// NewExistsFilter creates an exists filter.
func NewExistsFilter(field string, mandate Mandate) (Filter, error) {
	if field == "" {
		return Filter{}, fmt.Errorf("filter field is required")
	}
	if err := mandate.validate(); err != nil {
		return Filter{}, err
	}
	return Filter{Type: FilterExists, Field: field, Mandate: mandate}, nil
}

func (m Mandate) validate() error {
	switch m {
	case Must, MustNot:
		return nil
	default:
		return fmt.Errorf("unknown filter mandate %q", m)
	}
}

// TermsQuery is a terms aggregation over Field (and optionally SubField),
// restricted by the selected queries and the dashboard filters.
type TermsQuery struct {
	Indices  []string
	Queries  []Query
	Filters  []Filter
	Field    string
	SubField string
	Size     int
	// Exclude is a backend regex of term values to leave out. Not interpreted here.
	Exclude string
}

// HasSubField reports whether a secondary aggregation level is requested.
func (q TermsQuery) HasSubField() bool { return q.SubField != "" }
