// Package weights holds the term weighting table applied to aggregation counts.
package weights

import (
	"errors"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

// DefaultWeight applies to keys that are absent or whose entry is not numeric.
const DefaultWeight = 1.0

// ErrNotObject is returned by Parse when the payload is valid JSON but not an object.
var ErrNotObject = errors.New("weights payload is not a JSON object")

// Table is an immutable key -> weight mapping. The zero value is an empty table.
type Table struct {
	entries map[string]float64
}

// Empty returns a table where every key resolves to DefaultWeight.
func Empty() Table {
	return Table{}
}

// New builds a table from a copy of entries. Non-finite values are dropped.
func New(entries map[string]float64) Table {
	m := make(map[string]float64, len(entries))
	for k, v := range entries {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		m[k] = v
	}
	return Table{entries: m}
}

// FromObject builds a table from a decoded JSON object.
// Only numeric values are kept; anything else falls back to DefaultWeight on lookup.
func FromObject(obj map[string]any) Table {
	m := make(map[string]float64, len(obj))
	for k, v := range obj {
		if w, ok := numeric(v); ok {
			m[k] = w
		}
	}
	return New(m)
}

// Parse decodes a JSON object payload into a table.
func Parse(data []byte) (Table, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Table{}, fmt.Errorf("decode weights: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Table{}, ErrNotObject
	}
	return FromObject(obj), nil
}

// Weight returns the weight for key, or DefaultWeight when it has no numeric entry.
func (t Table) Weight(key string) float64 {
	if w, ok := t.entries[key]; ok {
		return w
	}
	return DefaultWeight
}

// Has reports whether key has an explicit numeric entry.
func (t Table) Has(key string) bool {
	_, ok := t.entries[key]
	return ok
}

// Len returns the number of explicit entries.
func (t Table) Len() int { return len(t.entries) }

// Entries returns a copy of the explicit entries.
func (t Table) Entries() map[string]float64 {
	m := make(map[string]float64, len(t.entries))
	for k, v := range t.entries {
		m[k] = v
	}
	return m
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
