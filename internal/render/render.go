// Package render turns a panel series into chart payloads.
package render

import (
	"fmt"
	"math"

	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/series"
	"github.com/kailas-cloud/weightedterms/internal/usecase/panel"
)

// Labels of the synthetic points.
const (
	LabelMissing = "Missing field"
	LabelOther   = "Other values"
)

// Pie geometry.
const (
	DonutInnerRadius = 0.4
	PieTilt          = 0.45
)

// Payload is a chart ready for a rendering client.
type Payload struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Chart       dompanel.Chart `json:"chart"`
	Arrangement string         `json:"arrangement"`
	CounterPos  string         `json:"counter_pos"`
	Total       int64          `json:"total"`
	Bar         *Bar           `json:"bar,omitempty"`
	Pie         *Pie           `json:"pie,omitempty"`
	Table       *Table         `json:"table,omitempty"`
}

// BarSeries is one bar; Data holds the single [rank, value] pair.
type BarSeries struct {
	Label   string     `json:"label"`
	Data    [][2]int64 `json:"data"`
	Meta    string     `json:"meta,omitempty"`
	Tooltip string     `json:"tooltip"`
}

// Bar is a bar chart.
type Bar struct {
	Series []BarSeries `json:"series"`
	YMin   int64       `json:"y_min"`
}

// Slice is one pie slice.
type Slice struct {
	Label   string  `json:"label"`
	Value   int64   `json:"value"`
	Percent float64 `json:"percent"`
	Meta    string  `json:"meta,omitempty"`
	Tooltip string  `json:"tooltip"`
}

// Pie is a pie chart.
type Pie struct {
	Slices      []Slice `json:"slices"`
	InnerRadius float64 `json:"inner_radius"`
	Tilt        float64 `json:"tilt"`
	Labels      bool    `json:"labels"`
}

// Row is one table row.
type Row struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
	Meta  string `json:"meta,omitempty"`
}

// Table is a table chart.
type Table struct {
	Rows []Row `json:"rows"`
}

// Points returns the ranked series followed by the missing and other points,
// keeping only the synthetic points the definition shows.
func Points(def dompanel.Definition, snap panel.Snapshot) []series.Point {
	points := make([]series.Point, 0, len(snap.Series)+2)
	points = append(points, snap.Series...)
	points = append(points,
		series.Point{Label: LabelMissing, Rank: len(snap.Series), Value: snap.Missing, Meta: series.MetaMissing},
		series.Point{Label: LabelOther, Rank: len(snap.Series) + 1, Value: snap.Other, Meta: series.MetaOther},
	)
	return ShowMeta(def, points)
}

// ShowMeta drops synthetic points the definition hides. Real terms are always kept.
func ShowMeta(def dompanel.Definition, points []series.Point) []series.Point {
	out := make([]series.Point, 0, len(points))
	for _, p := range points {
		switch p.Meta {
		case series.MetaMissing:
			if !def.Missing {
				continue
			}
		case series.MetaOther:
			if !def.Other {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Tooltip formats a point as "label (value)".
func Tooltip(label string, value float64) string {
	return fmt.Sprintf("%s (%d)", label, int64(math.Round(value)))
}

// Build renders the snapshot as chart. An empty chart uses the definition's chart.
func Build(def dompanel.Definition, snap panel.Snapshot, chart dompanel.Chart) Payload {
	if chart == "" {
		chart = def.Chart
	}
	points := Points(def, snap)

	var total int64
	for _, p := range points {
		total += p.Value
	}

	out := Payload{
		ID:          def.ID,
		Title:       def.Title,
		Chart:       chart,
		Arrangement: def.Arrangement,
		CounterPos:  def.CounterPos,
		Total:       total,
	}
	switch chart {
	case dompanel.ChartPie:
		out.Pie = buildPie(def, points, total)
	case dompanel.ChartTable:
		out.Table = buildTable(points)
	default:
		out.Chart = dompanel.ChartBar
		out.Bar = buildBar(points)
	}
	return out
}

func buildBar(points []series.Point) *Bar {
	bars := make([]BarSeries, 0, len(points))
	for i, p := range points {
		bars = append(bars, BarSeries{
			Label:   p.Label,
			Data:    [][2]int64{{int64(i), p.Value}},
			Meta:    p.Meta,
			Tooltip: Tooltip(p.Label, float64(p.Value)),
		})
	}
	return &Bar{Series: bars, YMin: 0}
}

func buildPie(def dompanel.Definition, points []series.Point, total int64) *Pie {
	slices := make([]Slice, 0, len(points))
	for _, p := range points {
		var pct float64
		if total != 0 {
			pct = float64(p.Value) / float64(total) * 100
		}
		slices = append(slices, Slice{
			Label:   p.Label,
			Value:   p.Value,
			Percent: pct,
			Meta:    p.Meta,
			Tooltip: Tooltip(p.Label, float64(p.Value)),
		})
	}

	pie := &Pie{Slices: slices, Tilt: 1, Labels: def.Labels}
	if def.Donut {
		pie.InnerRadius = DonutInnerRadius
	}
	if def.Tilt {
		pie.Tilt = PieTilt
	}
	return pie
}

func buildTable(points []series.Point) *Table {
	rows := make([]Row, 0, len(points))
	for _, p := range points {
		rows = append(rows, Row{Label: p.Label, Value: p.Value, Meta: p.Meta})
	}
	return &Table{Rows: rows}
}
