package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	"github.com/kailas-cloud/weightedterms/internal/render"
	healthuc "github.com/kailas-cloud/weightedterms/internal/usecase/health"
	paneluc "github.com/kailas-cloud/weightedterms/internal/usecase/panel"
)

// maxBodyBytes bounds request bodies (configs and inline weights).
const maxBodyBytes = 1 << 20

// Dashboard is the dashboard the API exposes.
type Dashboard interface {
	Panel(id string) (*paneluc.Service, error)
	Panels() []*paneluc.Service
	Refresh(ctx context.Context) error
	Indices() []string
	SetIndices(ctx context.Context, indices []string) error
	Filters() []query.Filter
	ClearFilters(ctx context.Context) error
	FilterOnTerm(ctx context.Context, panelID, label, meta string, negate bool) (*query.Filter, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the panel API.
type Server struct {
	dashboard     Dashboard
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(dashboard Dashboard, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		dashboard: dashboard,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrPanelNotFound, http.StatusNotFound, ErrorResponseCodePanelNotFound),
		sentinelHandler(domain.ErrInvalidDefinition, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidWeights, http.StatusBadRequest, ErrorResponseCodeInvalidWeights),
		sentinelHandler(domain.ErrInspectorDisabled, http.StatusNotFound, ErrorResponseCodeInspectorDisabled),
		sentinelHandler(domain.ErrNoData, http.StatusConflict, ErrorResponseCodeNoData),
		sentinelHandler(domain.ErrMalformedAggregation,
			http.StatusUnprocessableEntity, ErrorResponseCodeMalformedAggregation),
		sentinelHandler(domain.ErrSearchBackend, http.StatusBadGateway, ErrorResponseCodeSearchBackendError),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/panels", func(r chi.Router) {
		r.Get("/", s.ListPanels)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetPanel)
			r.Get("/chart", s.GetChart)
			r.Get("/inspect", s.InspectPanel)
			r.Post("/refresh", s.RefreshPanel)
			r.Put("/config", s.ConfigurePanel)
			r.Put("/weights", s.SetWeights)
			r.Post("/filters", s.FilterOnTerm)
		})
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Post("/refresh", s.RefreshDashboard)
		r.Get("/filters", s.ListFilters)
		r.Delete("/filters", s.ClearFilters)
		r.Put("/indices", s.SetIndices)
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ListPanels handles GET /panels.
func (s *Server) ListPanels(w http.ResponseWriter, _ *http.Request) {
	panels := s.dashboard.Panels()
	items := make([]PanelSummary, len(panels))
	for i, p := range panels {
		items[i] = summaryOf(p)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetPanel handles GET /panels/{id}.
func (s *Server) GetPanel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PanelResponse{Definition: p.Definition(), Snapshot: p.Snapshot()})
}

// GetChart handles GET /panels/{id}/chart.
func (s *Server) GetChart(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}

	var chartParam *string
	if err := runtime.BindQueryParameter("form", true, false, "chart", r.URL.Query(), &chartParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid chart parameter")
		return
	}
	var chart dompanel.Chart
	if chartParam != nil && *chartParam != "" {
		c, err := dompanel.ParseChart(*chartParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
			return
		}
		chart = c
	}

	if err := p.Err(); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, render.Build(p.Definition(), p.Snapshot(), chart))
}

// InspectPanel handles GET /panels/{id}/inspect.
func (s *Server) InspectPanel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}
	src, err := p.Inspect()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(InspectResponse{ID: p.ID(), Request: src})
}

// RefreshPanel handles POST /panels/{id}/refresh.
func (s *Server) RefreshPanel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}
	if err := p.Refresh(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// ConfigurePanel handles PUT /panels/{id}/config.
func (s *Server) ConfigurePanel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}

	def := p.Definition()
	if !decodeBody(w, r, &def) {
		return
	}
	def.ID = p.ID()

	if err := p.Configure(r.Context(), def); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PanelResponse{Definition: p.Definition(), Snapshot: p.Snapshot()})
}

// SetWeights handles PUT /panels/{id}/weights.
func (s *Server) SetWeights(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}

	var req WeightsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := p.SetManualWeights(r.Context(), req.Weights.text()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// FilterOnTerm handles POST /panels/{id}/filters.
func (s *Server) FilterOnTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := panelID(w, r)
	if !ok {
		return
	}

	var req FilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	f, err := s.dashboard.FilterOnTerm(r.Context(), id, req.Label, req.Meta, req.Negate)
	if err != nil && f == nil {
		s.handleDomainError(w, err)
		return
	}
	if err != nil {
		// The filter is in place; only the refresh that followed failed.
		s.logger.Warn("Refresh after filter failed", zap.Error(err))
	}
	if f == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// RefreshDashboard handles POST /dashboard/refresh.
func (s *Server) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Refresh(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	panels := s.dashboard.Panels()
	resp := RefreshResponse{Panels: make([]PanelSummary, len(panels))}
	for i, p := range panels {
		resp.Panels[i] = summaryOf(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListFilters handles GET /dashboard/filters.
func (s *Server) ListFilters(w http.ResponseWriter, _ *http.Request) {
	filters := s.dashboard.Filters()
	if filters == nil {
		filters = []query.Filter{}
	}
	writeJSON(w, http.StatusOK, FiltersResponse{Filters: filters})
}

// ClearFilters handles DELETE /dashboard/filters.
func (s *Server) ClearFilters(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.ClearFilters(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetIndices handles PUT /dashboard/indices.
func (s *Server) SetIndices(w http.ResponseWriter, r *http.Request) {
	var req IndicesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dashboard.SetIndices(r.Context(), req.Indices); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IndicesRequest{Indices: s.dashboard.Indices()})
}

func (s *Server) panel(w http.ResponseWriter, r *http.Request) (*paneluc.Service, bool) {
	id, ok := panelID(w, r)
	if !ok {
		return nil, false
	}
	p, err := s.dashboard.Panel(id)
	if err != nil {
		s.handleDomainError(w, err)
		return nil, false
	}
	return p, true
}

func panelID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid panel id")
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrPanelNotFound,
		domain.ErrInvalidDefinition,
		domain.ErrInvalidWeights,
		domain.ErrInspectorDisabled,
		domain.ErrNoData,
		domain.ErrMalformedAggregation,
		domain.ErrSearchBackend,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	if errors.Is(err, domain.ErrInvalidDefinition) {
		// Validation messages are safe and useful to the editor.
		msg = err.Error()
	}
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

// rawJSON keeps a JSON value verbatim.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// text returns a JSON string's contents, or the raw value for any other JSON.
func (r rawJSON) text() string {
	if len(r) == 0 || string(r) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s
	}
	return string(r)
}
