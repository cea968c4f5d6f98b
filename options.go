package weightedterms

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/usecase/weighting"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	urls           []string
	username       string
	password       string
	sniff          bool
	healthcheck    bool
	httpClient     *http.Client
	weightsTimeout time.Duration
	weightsFetcher weighting.Fetcher
	logger         *zap.Logger
}

// WithURLs sets the Elasticsearch node URLs.
func WithURLs(urls ...string) Option {
	return func(c *clientConfig) {
		c.urls = append(c.urls, urls...)
	}
}

// WithBasicAuth sets HTTP basic auth credentials for Elasticsearch.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithSniff enables cluster node discovery. Off by default.
func WithSniff(enabled bool) Option {
	return func(c *clientConfig) {
		c.sniff = enabled
	}
}

// WithHealthcheck enables periodic node health checks. Off by default.
func WithHealthcheck(enabled bool) Option {
	return func(c *clientConfig) {
		c.healthcheck = enabled
	}
}

// WithHTTPClient sets the HTTP client used for Elasticsearch requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithWeightsTimeout bounds weights file downloads.
func WithWeightsTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.weightsTimeout = d
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
