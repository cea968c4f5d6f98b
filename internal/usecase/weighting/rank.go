package weighting

import (
	"sort"

	"github.com/kailas-cloud/weightedterms/internal/domain/series"
)

// Rank sorts entries by descending count and assigns dense 0-based ranks.
// The sort is stable: ties keep the reducer's order, which is the backend's
// original term order.
func Rank(entries []series.Entry) []series.Point {
	sorted := make([]series.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})

	points := make([]series.Point, len(sorted))
	for i, e := range sorted {
		points[i] = series.Point{Label: e.Key, Rank: i, Value: e.Count}
	}
	return points
}
