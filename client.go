package weightedterms

import (
	"context"
	"errors"
	"fmt"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	searchrepo "github.com/kailas-cloud/weightedterms/internal/repository/search"
	weightsrepo "github.com/kailas-cloud/weightedterms/internal/repository/weights"
	"github.com/kailas-cloud/weightedterms/internal/usecase/weighting"
)

// Client is the weightedterms SDK entry point. It runs weighted terms
// aggregations directly against Elasticsearch, without the HTTP service.
type Client struct {
	es       *elastic.Client
	search   *searchrepo.Repo
	resolver *weighting.Resolver
	reducer  *weighting.Reducer
	logger   *zap.Logger
}

// New creates a Client. At least one Elasticsearch URL is required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.urls) == 0 {
		return nil, errors.New("weightedterms: elasticsearch url required (use WithURLs)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	es, err := elastic.NewClient(esOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("weightedterms: create elasticsearch client: %w", err)
	}

	return wireClient(es, cfg), nil
}

func esOptions(cfg *clientConfig) []elastic.ClientOptionFunc {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.urls...),
		elastic.SetSniff(cfg.sniff),
		elastic.SetHealthcheck(cfg.healthcheck),
	}
	if cfg.httpClient != nil {
		opts = append(opts, elastic.SetHttpClient(cfg.httpClient))
	}
	if cfg.username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.username, cfg.password))
	}
	return opts
}

func wireClient(es *elastic.Client, cfg *clientConfig) *Client {
	var fetcher weighting.Fetcher = weightsrepo.NewHTTPFetcher(cfg.weightsTimeout, cfg.logger)
	if cfg.weightsFetcher != nil {
		fetcher = cfg.weightsFetcher
	}

	return &Client{
		es:       es,
		search:   searchrepo.New(es),
		resolver: weighting.NewResolver(fetcher, cfg.logger),
		reducer:  weighting.NewReducer(cfg.logger),
		logger:   cfg.logger,
	}
}

// Close stops background goroutines of the underlying Elasticsearch client.
func (c *Client) Close() {
	if c.es != nil {
		c.es.Stop()
	}
}

// Ping checks cluster connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.search.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Terms starts a weighted terms aggregation over field.
func (c *Client) Terms(field string) *TermsBuilder {
	return &TermsBuilder{client: c, field: field}
}
