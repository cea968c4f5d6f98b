package aggregation

// Result is the parsed backend response for one panel query.
type Result struct {
	Buckets []Bucket
	// Other is the sum of doc counts of terms outside the requested size.
	Other int64
	// Missing is the number of documents without the primary field.
	Missing int64
}
