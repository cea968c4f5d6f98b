package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the weights cache is down; panels still render.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	search Pinger
	cache  Pinger
}

// New creates a Service. cache can be nil.
func New(search, cache Pinger) *Service {
	return &Service{search: search, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
			status = Degraded
		} else {
			checks["cache"] = CheckOK
		}
	}

	if err := s.search.Ping(ctx); err != nil {
		checks["search"] = CheckError
		status = Unhealthy
	} else {
		checks["search"] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
