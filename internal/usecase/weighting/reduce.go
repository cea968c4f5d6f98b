package weighting

import (
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/domain/aggregation"
	"github.com/kailas-cloud/weightedterms/internal/domain/series"
	"github.com/kailas-cloud/weightedterms/internal/domain/weights"
)

// maxDepth is the number of aggregation levels the reducer walks.
const maxDepth = 2

// Reducer applies a weights table to a terms aggregation.
type Reducer struct {
	logger *zap.Logger
}

// NewReducer creates a Reducer. logger may be nil.
func NewReducer(logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reducer{logger: logger}
}

// Reduce produces one weighted entry per top-level bucket, in input order.
// With hasSubField, a parent's count is floor(weight(parent) * sum of weighted
// sub-bucket counts); otherwise floor(weight(key) * doc_count). Both levels
// share the same table.
func (r *Reducer) Reduce(buckets []aggregation.Bucket, table weights.Table, hasSubField bool) []series.Entry {
	entries := make([]series.Entry, 0, len(buckets))
	for _, b := range buckets {
		entries = append(entries, series.Entry{
			Key:   b.Key(),
			Count: r.weigh(b, table, hasSubField, 1),
		})
	}
	return entries
}

func (r *Reducer) weigh(b aggregation.Bucket, table weights.Table, hasSubField bool, depth int) int64 {
	base := b.DocCount()
	if hasSubField && depth < maxDepth && b.HasSubBuckets() {
		var subtotal int64
		for _, sb := range b.SubBuckets() {
			subtotal = addSaturating(subtotal, r.weigh(sb, table, hasSubField, depth+1))
		}
		base = subtotal
	}

	if !table.Has(b.Key()) {
		return base
	}
	w := table.Weight(b.Key())
	count := applyWeight(w, base)
	r.logger.Debug("Adjusting term count",
		zap.String("key", b.Key()),
		zap.Int("level", depth),
		zap.Int64("count", base),
		zap.Float64("weight", w),
		zap.Int64("weighted", count),
	)
	return count
}

// applyWeight returns floor(w * count), saturated to the int64 range.
func applyWeight(w float64, count int64) int64 {
	v := math.Floor(w * float64(count))
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

// addSaturating returns a+b clamped to the int64 range.
func addSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}

// Reduce is a convenience wrapper around a Reducer without logging.
func Reduce(buckets []aggregation.Bucket, table weights.Table, hasSubField bool) []series.Entry {
	return NewReducer(nil).Reduce(buckets, table, hasSubField)
}
