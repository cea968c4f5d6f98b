// Package search runs panel terms aggregations against Elasticsearch.
package search

import (
	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/weightedterms/internal/domain/query"
)

// Aggregation names used in the request body.
const (
	RootAggName    = "weightedterms"
	MissingAggName = "weightedterms_missing"
)

// BuildSource builds the request body: size 0, one filter aggregation holding
// the terms aggregation on Field (with an optional terms sub-aggregation on
// SubField) and a missing-count aggregation.
func BuildSource(q query.TermsQuery) *elastic.SearchSource {
	terms := elastic.NewTermsAggregation().Field(q.Field).Size(q.Size)
	if q.Exclude != "" {
		terms = terms.Exclude(q.Exclude)
	}
	if q.HasSubField() {
		terms = terms.SubAggregation(q.SubField, elastic.NewTermsAggregation().Field(q.SubField))
	}

	root := elastic.NewFilterAggregation().
		Filter(filterQuery(q)).
		SubAggregation(q.Field, terms).
		SubAggregation(MissingAggName, elastic.NewMissingAggregation().Field(q.Field))

	return elastic.NewSearchSource().
		Size(0).
		Aggregation(RootAggName, root)
}

// filterQuery combines the selected queries (should) with the dashboard filters.
func filterQuery(q query.TermsQuery) elastic.Query {
	bq := elastic.NewBoolQuery()

	if len(q.Queries) > 0 {
		should := elastic.NewBoolQuery()
		for _, qq := range q.Queries {
			should = should.Should(queryClause(qq))
		}
		bq = bq.Must(should)
	}

	for _, f := range q.Filters {
		clause := filterClause(f)
		if clause == nil {
			continue
		}
		if f.Mandate == query.MustNot {
			bq = bq.MustNot(clause)
		} else {
			bq = bq.Filter(clause)
		}
	}
	return bq
}

func queryClause(q query.Query) elastic.Query {
	if q.Text == "" || q.Text == "*" {
		return elastic.NewMatchAllQuery()
	}
	return elastic.NewQueryStringQuery(q.Text)
}

func filterClause(f query.Filter) elastic.Query {
	switch f.Type {
	case query.FilterTerms:
		return elastic.NewTermQuery(f.Field, f.Value)
	case query.FilterExists:
		return elastic.NewExistsQuery(f.Field)
	default:
		return nil
	}
}
