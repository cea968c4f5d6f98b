package weighting

import "context"

// Fetcher retrieves a weights payload from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Evicter is implemented by fetchers that cache payloads, so an unusable
// payload is not served again.
type Evicter interface {
	Evict(ctx context.Context, url string) error
}
