// Package panel defines the weightedterms panel configuration and lifecycle state.
package panel

import (
	"fmt"
	"strings"
)

// Chart is the visualization type.
type Chart string

const (
	// ChartTable renders a table of terms and counts.
	ChartTable Chart = "table"
	// ChartBar renders a bar chart, one bar per rank.
	ChartBar Chart = "bar"
	// ChartPie renders a pie chart.
	ChartPie Chart = "pie"
)

// ParseChart validates a chart name.
func ParseChart(s string) (Chart, error) {
	switch c := Chart(strings.ToLower(s)); c {
	case ChartTable, ChartBar, ChartPie:
		return c, nil
	default:
		return "", fmt.Errorf("chart must be table, bar or pie, got %q", s)
	}
}

// QueryMode selects which dashboard queries a panel uses.
type QueryMode string

// Query selection modes.
const (
	QueryModeAll      QueryMode = "all"
	QueryModePinned   QueryMode = "pinned"
	QueryModeUnpinned QueryMode = "unpinned"
	QueryModeSelected QueryMode = "selected"
)

// Queries is the panel's query selection.
type Queries struct {
	Mode QueryMode `json:"mode" yaml:"mode"`
	IDs  []int     `json:"ids" yaml:"ids"`
}

// Definition is the validated configuration of one panel.
type Definition struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Field    string `json:"field"`
	AggField string `json:"agg_field_1"`
	SubField string `json:"agg_field_2,omitempty"`
	Size     int    `json:"size"`
	Exclude  string `json:"filter,omitempty"`

	ManualWeights  string `json:"weights,omitempty"`
	WeightsFileURL string `json:"weights_file_url,omitempty"`

	Chart       Chart   `json:"chart"`
	Missing     bool    `json:"missing"`
	Other       bool    `json:"other"`
	Donut       bool    `json:"donut"`
	Tilt        bool    `json:"tilt"`
	Labels      bool    `json:"labels"`
	Arrangement string  `json:"arrangement"`
	CounterPos  string  `json:"counter_pos"`
	Spyable     bool    `json:"spyable"`
	Queries     Queries `json:"queries"`
}

// Defaults used when a field is left empty.
const (
	DefaultField       = "_type"
	DefaultSize        = 10
	DefaultChart       = ChartBar
	DefaultArrangement = "horizontal"
	DefaultCounterPos  = "above"
)

// Normalize fills empty fields with defaults. Boolean flags are left to the caller.
func (d *Definition) Normalize() {
	if d.Field == "" {
		d.Field = DefaultField
	}
	if d.AggField == "" {
		d.AggField = d.Field
	}
	if d.Size <= 0 {
		d.Size = DefaultSize
	}
	if d.Chart == "" {
		d.Chart = DefaultChart
	}
	if d.Arrangement == "" {
		d.Arrangement = DefaultArrangement
	}
	if d.CounterPos == "" {
		d.CounterPos = DefaultCounterPos
	}
	if d.Queries.Mode == "" {
		d.Queries.Mode = QueryModeAll
	}
}

// Validate checks the definition. Normalize should run first.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("panel id is required")
	}
	if d.Size <= 0 {
		return fmt.Errorf("panel %s: size must be positive, got %d", d.ID, d.Size)
	}
	if _, err := ParseChart(string(d.Chart)); err != nil {
		return fmt.Errorf("panel %s: %w", d.ID, err)
	}
	switch d.Arrangement {
	case "horizontal", "vertical":
	default:
		return fmt.Errorf("panel %s: arrangement must be horizontal or vertical, got %q", d.ID, d.Arrangement)
	}
	switch d.CounterPos {
	case "above", "below", "none":
	default:
		return fmt.Errorf("panel %s: counter_pos must be above, below or none, got %q", d.ID, d.CounterPos)
	}
	switch d.Queries.Mode {
	case QueryModeAll, QueryModePinned, QueryModeUnpinned, QueryModeSelected:
	default:
		return fmt.Errorf("panel %s: unknown queries.mode %q", d.ID, d.Queries.Mode)
	}
	return nil
}
