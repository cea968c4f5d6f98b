// Package weights fetches weights files over HTTP, with optional caching.
package weights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	"github.com/kailas-cloud/weightedterms/internal/metrics"
)

// maxBodyBytes caps the size of a weights file.
const maxBodyBytes = 8 << 20

// HTTPFetcher downloads weights files. Concurrent fetches of the same URL share one request.
type HTTPFetcher struct {
	client *http.Client
	group  singleflight.Group
	logger *zap.Logger
}

// NewHTTPFetcher creates a fetcher. A zero timeout means no client-level timeout.
func NewHTTPFetcher(timeout time.Duration, logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch returns the response body for url. Non-2xx responses are errors.
// The shared request runs detached from any single caller (bounded by the client
// timeout); each caller stops waiting when its own ctx is done.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(url, func() (any, error) {
		return f.get(shared, url)
	})

	select {
	case <-ctx.Done():
		metrics.WeightsFetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("get %s: %w: %w", url, domain.ErrWeightsUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			metrics.WeightsFetchTotal.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		metrics.WeightsFetchTotal.WithLabelValues("ok").Inc()
		if res.Shared {
			f.logger.Debug("Shared in-flight weights fetch", zap.String("url", url))
		}
		return res.Val.([]byte), nil
	}
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %w", url, domain.ErrWeightsUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: status %d: %w", url, resp.StatusCode, domain.ErrWeightsUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
