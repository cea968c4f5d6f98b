// Package aggregation models the terms aggregation result returned by the search backend.
package aggregation

// Bucket is one term of a terms aggregation, optionally carrying a nested
// terms aggregation for the secondary field.
type Bucket struct {
	key      string
	docCount int64
	sub      []Bucket
	hasSub   bool
}

// NewBucket creates a leaf bucket.
func NewBucket(key string, docCount int64) Bucket {
	return Bucket{key: key, docCount: docCount}
}

// NewParentBucket creates a bucket whose sub-aggregation was present in the response.
// An empty sub slice is still a present (empty) sub-aggregation.
func NewParentBucket(key string, docCount int64, sub []Bucket) Bucket {
	cp := make([]Bucket, len(sub))
	copy(cp, sub)
	return Bucket{key: key, docCount: docCount, sub: cp, hasSub: true}
}

// Key returns the term value.
func (b Bucket) Key() string { return b.key }

// DocCount returns the raw document count.
func (b Bucket) DocCount() int64 { return b.docCount }

// SubBuckets returns the nested buckets. Callers must not modify the slice.
func (b Bucket) SubBuckets() []Bucket { return b.sub }

// HasSubBuckets reports whether the nested aggregation was present.
func (b Bucket) HasSubBuckets() bool { return b.hasSub }
