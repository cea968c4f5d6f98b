// Package panel runs the weightedterms panel lifecycle: resolve weights,
// query the backend, weight and rank the buckets, hand the series to renderers.
package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	"github.com/kailas-cloud/weightedterms/internal/domain/series"
	"github.com/kailas-cloud/weightedterms/internal/domain/weights"
	logpkg "github.com/kailas-cloud/weightedterms/internal/logger"
	"github.com/kailas-cloud/weightedterms/internal/metrics"
	"github.com/kailas-cloud/weightedterms/internal/usecase/weighting"
)

const tracerName = "github.com/kailas-cloud/weightedterms/internal/usecase/panel"

// Refresh outcomes used as metric labels.
const (
	statusOK      = "ok"
	statusError   = "error"
	statusSkipped = "skipped"
)

// Snapshot is a consistent copy of the panel state.
type Snapshot struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	State         dompanel.State     `json:"state"`
	WeightsOrigin weighting.Origin   `json:"weights_origin,omitempty"`
	Messages      []dompanel.Message `json:"messages"`
	Series        []series.Point     `json:"series"`
	Other         int64              `json:"other"`
	Missing       int64              `json:"missing"`
	HasData       bool               `json:"has_data"`
	Error         string             `json:"error,omitempty"`
}

// RenderFunc receives the panel state after every completed data fetch.
type RenderFunc func(Snapshot)

// Service owns one panel: its definition, resolved weights table and last series.
// Network calls run without the lock held; results are fenced by a request token
// so only the latest issued fetch may overwrite the series.
type Service struct {
	searcher Searcher
	resolver WeightsResolver
	scope    Scope
	reducer  *weighting.Reducer
	tracer   trace.Tracer
	logger   *zap.Logger

	mu         sync.Mutex
	def        dompanel.Definition
	state      dompanel.State
	table      weights.Table
	origin     weighting.Origin
	weightMsgs []dompanel.Message
	points     []series.Point
	other      int64
	missing    int64
	hasData    bool
	lastErr    error
	lastQuery  *query.TermsQuery
	dirty      bool
	weightsGen uint64
	token      uint64
	renderers  []RenderFunc
}

// New creates a panel service. The definition is normalized and validated.
func New(def dompanel.Definition, searcher Searcher, resolver WeightsResolver, scope Scope, logger *zap.Logger) (*Service, error) {
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("panel", def.ID))
	return &Service{
		searcher: searcher,
		resolver: resolver,
		scope:    scope,
		reducer:  weighting.NewReducer(logger),
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
		def:      def,
		state:    dompanel.StateUninitialized,
		table:    weights.Empty(),
	}, nil
}

// ID returns the panel id.
func (s *Service) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.ID
}

// Definition returns a copy of the current definition.
func (s *Service) Definition() dompanel.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// OnRender registers a callback invoked after each completed data fetch.
func (s *Service) OnRender(fn RenderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = append(s.renderers, fn)
}

// Initialize resolves weights and runs the first data fetch.
// It is a no-op once the panel has left the uninitialized state.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != dompanel.StateUninitialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.cycle(ctx)
}

// Refresh re-runs the data fetch with the already resolved weights table.
// While the panel is uninitialized or resolving weights the call is ignored:
// the pending cycle fetches data once weights are in.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case dompanel.StateReady, dompanel.StateError, dompanel.StateDataLoading:
	default:
		state := s.state
		s.mu.Unlock()
		s.logger.Debug("Refresh ignored", zap.String("state", string(state)))
		return nil
	}
	s.mu.Unlock()
	return s.fetch(ctx)
}

// CommitConfiguration re-resolves weights from the current definition and refetches data.
func (s *Service) CommitConfiguration(ctx context.Context) error {
	return s.cycle(ctx)
}

// Configure replaces the definition and commits it.
func (s *Service) Configure(ctx context.Context, def dompanel.Definition) error {
	def.Normalize()
	if err := def.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, err)
	}

	s.mu.Lock()
	if def.ID != s.def.ID {
		s.mu.Unlock()
		return fmt.Errorf("%w: panel id cannot change (%s -> %s)", domain.ErrInvalidDefinition, s.def.ID, def.ID)
	}
	s.def = def
	s.dirty = false
	s.mu.Unlock()

	return s.CommitConfiguration(ctx)
}

// SetManualWeights replaces the inline weights JSON and commits.
func (s *Service) SetManualWeights(ctx context.Context, manualJSON string) error {
	s.mu.Lock()
	s.def.ManualWeights = manualJSON
	s.dirty = false
	s.mu.Unlock()

	return s.CommitConfiguration(ctx)
}

// SetRefresh marks the edit form as changed (or not).
func (s *Service) SetRefresh(dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = dirty
}

// CloseEdit commits the configuration when the edit form was changed.
func (s *Service) CloseEdit(ctx context.Context) error {
	s.mu.Lock()
	dirty := s.dirty
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	return s.CommitConfiguration(ctx)
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Err returns the error of the last data fetch while the panel is in the error state.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != dompanel.StateError {
		return nil
	}
	return s.lastErr
}

// Inspect returns the last issued request body. The panel must be spyable.
func (s *Service) Inspect() (any, error) {
	s.mu.Lock()
	spyable := s.def.Spyable
	last := s.lastQuery
	s.mu.Unlock()

	if !spyable {
		return nil, domain.ErrInspectorDisabled
	}
	if last == nil {
		return nil, domain.ErrNoData
	}
	src, err := s.searcher.Source(*last)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	return src, nil
}

// cycle runs WeightsLoading then DataLoading.
func (s *Service) cycle(ctx context.Context) error {
	if !s.loadWeights(ctx) {
		return nil
	}
	return s.fetch(ctx)
}

// loadWeights resolves the table and reports whether this resolution is
// still the latest one (a newer commit supersedes it).
func (s *Service) loadWeights(ctx context.Context) bool {
	s.mu.Lock()
	s.weightsGen++
	gen := s.weightsGen
	s.state = dompanel.StateWeightsLoading
	src := weighting.Source{ManualJSON: s.def.ManualWeights, FileURL: s.def.WeightsFileURL}
	id := s.def.ID
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "panel.resolve_weights",
		trace.WithAttributes(attribute.String("panel.id", id)))
	res := s.resolver.Resolve(ctx, src)
	span.SetAttributes(
		attribute.String("weights.origin", string(res.Origin)),
		attribute.Int("weights.entries", res.Table.Len()),
	)
	span.End()

	metrics.WeightResolutionsTotal.WithLabelValues(id, string(res.Origin)).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.weightsGen {
		s.logger.Debug("Discarding superseded weights resolution")
		return false
	}
	s.table = res.Table
	s.origin = res.Origin
	s.weightMsgs = res.Messages
	s.state = dompanel.StateDataLoading
	return true
}

// fetch queries the backend and, when the response is still the latest,
// stores the weighted and ranked series.
func (s *Service) fetch(ctx context.Context) error {
	cycleID := uuid.NewString()
	log := s.logger.With(zap.String("cycle_id", cycleID))
	ctx = logpkg.ContextWithLogger(ctx, log)

	s.mu.Lock()
	indices := s.scope.Indices()
	if len(indices) == 0 {
		// No transition: the next refresh with indices runs the pending fetch.
		id := s.def.ID
		s.mu.Unlock()
		log.Debug("No indices selected, skipping query")
		metrics.PanelRefreshTotal.WithLabelValues(id, statusSkipped).Inc()
		return nil
	}

	q := query.TermsQuery{
		Indices:  indices,
		Queries:  s.scope.Queries(s.def.Queries),
		Filters:  s.scope.Filters(),
		Field:    s.def.AggField,
		SubField: s.def.SubField,
		Size:     s.def.Size,
		Exclude:  s.def.Exclude,
	}
	s.token++
	token := s.token
	table := s.table
	id := s.def.ID
	s.state = dompanel.StateDataLoading
	s.lastQuery = &q
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "panel.search", trace.WithAttributes(
		attribute.String("panel.id", id),
		attribute.String("panel.cycle_id", cycleID),
		attribute.String("search.field", q.Field),
		attribute.Int("search.size", q.Size),
	))
	defer span.End()

	start := time.Now()
	res, err := s.searcher.Search(ctx, q)
	metrics.SearchDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())

	var points []series.Point
	if err == nil {
		points = weighting.Rank(s.reducer.Reduce(res.Buckets, table, q.HasSubField()))
	}

	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		log.Debug("Discarding stale search response",
			zap.Uint64("token", token))
		metrics.PanelStaleResponsesTotal.WithLabelValues(id).Inc()
		return nil
	}
	if err != nil {
		s.state = dompanel.StateError
		s.lastErr = err
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Panel refresh failed", zap.Error(err))
		metrics.PanelRefreshTotal.WithLabelValues(id, statusError).Inc()
		return fmt.Errorf("refresh panel %s: %w", id, err)
	}

	s.points = points
	s.other = res.Other
	s.missing = res.Missing
	s.hasData = true
	s.lastErr = nil
	s.state = dompanel.StateReady
	snap := s.snapshotLocked()
	renderers := make([]RenderFunc, len(s.renderers))
	copy(renderers, s.renderers)
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("series.points", len(points)))
	log.Debug("Panel refreshed", zap.Int("points", len(points)))
	metrics.PanelRefreshTotal.WithLabelValues(id, statusOK).Inc()

	for _, fn := range renderers {
		fn(snap)
	}
	return nil
}

func (s *Service) snapshotLocked() Snapshot {
	msgs := make([]dompanel.Message, 0, len(s.weightMsgs)+1)
	msgs = append(msgs, s.weightMsgs...)
	snap := Snapshot{
		ID:            s.def.ID,
		Title:         s.def.Title,
		State:         s.state,
		WeightsOrigin: s.origin,
		Series:        make([]series.Point, len(s.points)),
		Other:         s.other,
		Missing:       s.missing,
		HasData:       s.hasData,
	}
	copy(snap.Series, s.points)
	if s.state == dompanel.StateError && s.lastErr != nil {
		snap.Error = s.lastErr.Error()
		msgs = append(msgs, dompanel.Message{Severity: dompanel.SeverityError, Text: s.lastErr.Error()})
	}
	snap.Messages = msgs
	return snap
}
