package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	"github.com/kailas-cloud/weightedterms/internal/domain/aggregation"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	logpkg "github.com/kailas-cloud/weightedterms/internal/logger"
)

// rawSuffix is the conventional not-analyzed multi-field suffix.
const rawSuffix = ".raw"

// Repo is the Elasticsearch-backed search collaborator.
type Repo struct {
	client *elastic.Client
}

// New creates a search repository.
func New(client *elastic.Client) *Repo {
	return &Repo{client: client}
}

// Search executes the terms aggregation and parses its buckets.
func (r *Repo) Search(ctx context.Context, q query.TermsQuery) (aggregation.Result, error) {
	res, err := r.client.Search(q.Indices...).
		SearchSource(BuildSource(q)).
		Do(ctx)
	if err != nil {
		return aggregation.Result{}, fmt.Errorf("%w: %w", domain.ErrSearchBackend, err)
	}
	logpkg.FromContext(ctx).Debug("Search completed",
		zap.Strings("indices", q.Indices),
		zap.Int64("took_ms", res.TookInMillis),
		zap.Bool("timed_out", res.TimedOut),
	)
	return ParseResult(res.Aggregations, q)
}

// Source returns the request body for the inspector.
func (r *Repo) Source(q query.TermsQuery) (any, error) {
	src, err := BuildSource(q).Source()
	if err != nil {
		return nil, fmt.Errorf("build search source: %w", err)
	}
	return src, nil
}

// ResolveField returns field+".raw" when any of indices maps it, else field.
// The untyped field-mapping endpoint is called directly; the typed form
// built by the client's GetFieldMapping service is rejected by ES 7.
func (r *Repo) ResolveField(ctx context.Context, indices []string, field string) (string, error) {
	raw := field + rawSuffix
	escaped := make([]string, 0, len(indices))
	for _, idx := range indices {
		escaped = append(escaped, url.PathEscape(idx))
	}
	res, err := r.client.PerformRequest(ctx, elastic.PerformRequestOptions{
		Method: "GET",
		Path:   "/" + strings.Join(escaped, ",") + "/_mapping/field/" + url.PathEscape(raw),
	})
	if err != nil {
		if elastic.IsNotFound(err) {
			return field, nil
		}
		return field, fmt.Errorf("get field mapping: %w", err)
	}
	var mappings map[string]any
	if err := json.Unmarshal(res.Body, &mappings); err != nil {
		return field, fmt.Errorf("decode field mapping: %w", err)
	}
	if hasFieldMapping(mappings, raw) {
		return raw, nil
	}
	return field, nil
}

// Ping checks cluster availability.
func (r *Repo) Ping(ctx context.Context) error {
	if _, err := r.client.ClusterHealth().Do(ctx); err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	return nil
}

// hasFieldMapping walks {index: {mappings: {field: {...}}}}.
func hasFieldMapping(resp map[string]any, field string) bool {
	for _, idx := range resp {
		m, ok := idx.(map[string]any)
		if !ok {
			continue
		}
		fields, ok := m["mappings"].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := fields[field]; ok {
			return true
		}
	}
	return false
}
