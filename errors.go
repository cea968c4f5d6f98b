package weightedterms

import "github.com/kailas-cloud/weightedterms/internal/domain"

// Sentinel errors returned by Do, usable with errors.Is.
var (
	ErrSearchBackend        = domain.ErrSearchBackend
	ErrMalformedAggregation = domain.ErrMalformedAggregation
)
