package chi

import (
	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	paneluc "github.com/kailas-cloud/weightedterms/internal/usecase/panel"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest           ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized         ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed     ErrorResponseCode = "validation_failed"
	ErrorResponseCodePanelNotFound        ErrorResponseCode = "panel_not_found"
	ErrorResponseCodeInvalidWeights       ErrorResponseCode = "invalid_weights"
	ErrorResponseCodeInspectorDisabled    ErrorResponseCode = "inspector_disabled"
	ErrorResponseCodeNoData               ErrorResponseCode = "no_data"
	ErrorResponseCodeMalformedAggregation ErrorResponseCode = "malformed_aggregation"
	ErrorResponseCodeSearchBackendError   ErrorResponseCode = "search_backend_error"
	ErrorResponseCodeInternalError        ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// PanelSummary is one item of GET /panels.
type PanelSummary struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Chart dompanel.Chart `json:"chart"`
	State dompanel.State `json:"state"`
}

// PanelResponse is the body of GET /panels/{id}.
type PanelResponse struct {
	Definition dompanel.Definition `json:"definition"`
	paneluc.Snapshot
}

// WeightsRequest is the body of PUT /panels/{id}/weights. Weights may be a
// JSON object or a string holding one.
type WeightsRequest struct {
	Weights rawJSON `json:"weights"`
}

// FilterRequest is the body of POST /panels/{id}/filters.
type FilterRequest struct {
	Label  string `json:"label"`
	Meta   string `json:"meta,omitempty"`
	Negate bool   `json:"negate"`
}

// FiltersResponse is the body of GET /dashboard/filters.
type FiltersResponse struct {
	Filters []query.Filter `json:"filters"`
}

// IndicesRequest is the body of PUT /dashboard/indices.
type IndicesRequest struct {
	Indices []string `json:"indices"`
}

// RefreshResponse is the body of POST /dashboard/refresh.
type RefreshResponse struct {
	Panels []PanelSummary `json:"panels"`
}

// InspectResponse is the body of GET /panels/{id}/inspect.
type InspectResponse struct {
	ID      string `json:"id"`
	Request any    `json:"request"`
}

func summaryOf(p *paneluc.Service) PanelSummary {
	def := p.Definition()
	snap := p.Snapshot()
	return PanelSummary{ID: def.ID, Title: def.Title, Chart: def.Chart, State: snap.State}
}
