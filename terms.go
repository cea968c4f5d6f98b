package weightedterms

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	"github.com/kailas-cloud/weightedterms/internal/domain/weights"
	"github.com/kailas-cloud/weightedterms/internal/usecase/weighting"
)

// defaultSize matches the panel default.
const defaultSize = 10

// Point is one ranked term. Rank is the dense 0-based position.
type Point struct {
	Label string
	Rank  int
	Value int64
}

// Result is the outcome of a weighted terms aggregation.
type Result struct {
	Points []Point
	// Other is the doc count outside the top terms. Not weighted.
	Other int64
	// Missing is the number of documents without the field. Not weighted.
	Missing int64
	// WeightsOrigin is manual, file, fallback or none.
	WeightsOrigin string
	// Messages explains weights fallbacks.
	Messages []string
}

// TermsBuilder is a fluent builder for weighted terms aggregations.
type TermsBuilder struct {
	client *Client

	field    string
	subField string
	indices  []string
	size     int
	exclude  string
	queries  []query.Query
	filters  []query.Filter

	table      *weights.Table
	weightsSrc weighting.Source

	err error
}

// In sets the indices to search.
func (b *TermsBuilder) In(indices ...string) *TermsBuilder {
	b.indices = append(b.indices, indices...)
	return b
}

// By adds a second aggregation level. Each term's value becomes the sum of
// its weighted sub-term counts.
func (b *TermsBuilder) By(subField string) *TermsBuilder {
	b.subField = subField
	return b
}

// Size sets how many top terms are requested. Default 10.
func (b *TermsBuilder) Size(n int) *TermsBuilder {
	b.size = n
	return b
}

// Exclude sets a backend regex of term values to leave out.
func (b *TermsBuilder) Exclude(regex string) *TermsBuilder {
	b.exclude = regex
	return b
}

// Query adds a query string. Multiple queries are OR-ed.
func (b *TermsBuilder) Query(text string) *TermsBuilder {
	b.queries = append(b.queries, query.Query{ID: len(b.queries), Text: text})
	return b
}

// Where keeps documents whose field equals value.
func (b *TermsBuilder) Where(field, value string) *TermsBuilder {
	return b.addFilter(query.NewTermsFilter(field, value, query.Must))
}

// WhereNot drops documents whose field equals value.
func (b *TermsBuilder) WhereNot(field, value string) *TermsBuilder {
	return b.addFilter(query.NewTermsFilter(field, value, query.MustNot))
}

// Has keeps documents that have field.
func (b *TermsBuilder) Has(field string) *TermsBuilder {
	return b.addFilter(query.NewExistsFilter(field, query.Must))
}

func (b *TermsBuilder) addFilter(f query.Filter, err error) *TermsBuilder {
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	b.filters = append(b.filters, f)
	return b
}

// Weights sets the weights table directly. Terms not in m count with weight 1.
func (b *TermsBuilder) Weights(m map[string]float64) *TermsBuilder {
	t := weights.New(m)
	b.table = &t
	return b
}

// WeightsJSON sets weights from a JSON object; an invalid object falls back
// to WeightsURL, then to no weights.
func (b *TermsBuilder) WeightsJSON(raw string) *TermsBuilder {
	b.weightsSrc.ManualJSON = raw
	return b
}

// WeightsURL sets a weights file to download.
func (b *TermsBuilder) WeightsURL(url string) *TermsBuilder {
	b.weightsSrc.FileURL = url
	return b
}

// Do runs the aggregation and returns the weighted ranking.
// Without indices no request is issued and the result is empty.
func (b *TermsBuilder) Do(ctx context.Context) (Result, error) {
	if b.err != nil {
		return Result{}, fmt.Errorf("weightedterms: %w", b.err)
	}
	if b.field == "" {
		return Result{}, fmt.Errorf("weightedterms: field is required")
	}
	if len(b.indices) == 0 {
		// Nothing to query yet: no request, no error.
		return Result{WeightsOrigin: string(weighting.OriginNone)}, nil
	}

	var out Result
	var table weights.Table
	if b.table != nil {
		table = *b.table
		out.WeightsOrigin = string(weighting.OriginManual)
	} else {
		res := b.client.resolver.Resolve(ctx, b.weightsSrc)
		table = res.Table
		out.WeightsOrigin = string(res.Origin)
		for _, m := range res.Messages {
			out.Messages = append(out.Messages, m.Text)
		}
	}

	size := b.size
	if size <= 0 {
		size = defaultSize
	}
	q := query.TermsQuery{
		Indices:  b.indices,
		Queries:  b.queries,
		Filters:  b.filters,
		Field:    b.field,
		SubField: b.subField,
		Size:     size,
		Exclude:  b.exclude,
	}

	agg, err := b.client.search.Search(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("weightedterms: search: %w", err)
	}

	entries := b.client.reducer.Reduce(agg.Buckets, table, q.HasSubField())
	ranked := weighting.Rank(entries)
	out.Points = make([]Point, len(ranked))
	for i, p := range ranked {
		out.Points[i] = Point{Label: p.Label, Rank: p.Rank, Value: p.Value}
	}
	out.Other = agg.Other
	out.Missing = agg.Missing
	return out, nil
}
