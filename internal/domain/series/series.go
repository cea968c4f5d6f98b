// Package series holds the weighted and ranked output of a panel refresh.
package series

// Meta values mark synthetic points appended for display.
const (
	MetaMissing = "missing"
	MetaOther   = "other"
)

// Entry is a term with its weighted count, produced by one reduction pass.
type Entry struct {
	Key   string
	Count int64
}

// Point is a plot-ready datum. Rank is the dense 0-based position after sorting.
type Point struct {
	Label string `json:"label"`
	Rank  int    `json:"rank"`
	Value int64  `json:"value"`
	Meta  string `json:"meta,omitempty"`
}
