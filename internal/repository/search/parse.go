package search

import (
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	"github.com/kailas-cloud/weightedterms/internal/domain/aggregation"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
)

// ParseResult converts the aggregation response into domain buckets.
func ParseResult(aggs elastic.Aggregations, q query.TermsQuery) (aggregation.Result, error) {
	root, ok := aggs.Filter(RootAggName)
	if !ok {
		return aggregation.Result{}, domain.NewMalformed("aggregations." + RootAggName)
	}
	terms, ok := root.Terms(q.Field)
	if !ok {
		return aggregation.Result{}, domain.NewMalformed(
			fmt.Sprintf("aggregations.%s.%s", RootAggName, q.Field))
	}

	buckets := make([]aggregation.Bucket, 0, len(terms.Buckets))
	for _, b := range terms.Buckets {
		if b == nil {
			continue
		}
		key := bucketKey(b)
		if !q.HasSubField() {
			buckets = append(buckets, aggregation.NewBucket(key, b.DocCount))
			continue
		}
		sub, ok := b.Terms(q.SubField)
		if !ok {
			buckets = append(buckets, aggregation.NewBucket(key, b.DocCount))
			continue
		}
		children := make([]aggregation.Bucket, 0, len(sub.Buckets))
		for _, sb := range sub.Buckets {
			if sb == nil {
				continue
			}
			children = append(children, aggregation.NewBucket(bucketKey(sb), sb.DocCount))
		}
		buckets = append(buckets, aggregation.NewParentBucket(key, b.DocCount, children))
	}

	out := aggregation.Result{Buckets: buckets, Other: terms.SumOfOtherDocCount}
	if missing, ok := root.Missing(MissingAggName); ok {
		out.Missing = missing.DocCount
	}
	return out, nil
}

func bucketKey(b *elastic.AggregationBucketKeyItem) string {
	if b.KeyAsString != nil {
		return *b.KeyAsString
	}
	if s, ok := b.Key.(string); ok {
		return s
	}
	if b.KeyNumber != "" {
		return b.KeyNumber.String()
	}
	return fmt.Sprint(b.Key)
}
