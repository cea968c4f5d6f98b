package panel

import (
	"context"

	"github.com/kailas-cloud/weightedterms/internal/domain/aggregation"
	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	"github.com/kailas-cloud/weightedterms/internal/usecase/weighting"
)

// Searcher executes terms aggregations against the search backend.
type Searcher interface {
	Search(ctx context.Context, q query.TermsQuery) (aggregation.Result, error)
	Source(q query.TermsQuery) (any, error)
}

// WeightsResolver resolves the weights table of a panel.
type WeightsResolver interface {
	Resolve(ctx context.Context, src weighting.Source) weighting.Resolution
}

// Scope is the dashboard context a panel queries within.
type Scope interface {
	Indices() []string
	Queries(sel dompanel.Queries) []query.Query
	Filters() []query.Filter
}
