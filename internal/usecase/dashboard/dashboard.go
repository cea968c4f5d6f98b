// Package dashboard holds the state shared by panels (indices, queries, filters)
// and drives their refresh through an explicit Bus.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
	"github.com/kailas-cloud/weightedterms/internal/domain/series"
	logpkg "github.com/kailas-cloud/weightedterms/internal/logger"
	"github.com/kailas-cloud/weightedterms/internal/usecase/panel"
)

// Dashboard owns the panel set and the query scope they share.
type Dashboard struct {
	fields FieldResolver
	bus    *Bus
	logger *zap.Logger

	mu      sync.RWMutex
	indices []string
	queries []query.Query
	filters []query.Filter
	panels  map[string]*panel.Service
	order   []string
}

// New creates a dashboard. fields may be nil, in which case filters use the plain field.
func New(fields FieldResolver, bus *Bus, logger *zap.Logger) *Dashboard {
	if bus == nil {
		bus = NewBus()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		fields: fields,
		bus:    bus,
		logger: logger,
		panels: make(map[string]*panel.Service),
	}
}

// Add registers a panel and subscribes its refresh handler.
func (d *Dashboard) Add(p *panel.Service) error {
	id := p.ID()

	d.mu.Lock()
	if _, ok := d.panels[id]; ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: duplicate panel id %q", domain.ErrInvalidDefinition, id)
	}
	d.panels[id] = p
	d.order = append(d.order, id)
	d.mu.Unlock()

	d.bus.Subscribe(id, p.Refresh)
	return nil
}

// Panel returns the panel with the given id.
func (d *Dashboard) Panel(id string) (*panel.Service, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.panels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPanelNotFound, id)
	}
	return p, nil
}

// Panels returns the panels in registration order.
func (d *Dashboard) Panels() []*panel.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*panel.Service, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.panels[id])
	}
	return out
}

// Initialize runs the first load of every panel.
func (d *Dashboard) Initialize(ctx context.Context) error {
	var errs []error
	for _, p := range d.Panels() {
		if err := p.Initialize(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Refresh signals every panel to refetch its data.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.bus.Publish(ctx)
}

// Indices returns the selected indices.
func (d *Dashboard) Indices() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.indices)
}

// SetIndices replaces the selected indices and refreshes the panels.
func (d *Dashboard) SetIndices(ctx context.Context, indices []string) error {
	d.mu.Lock()
	d.indices = slices.Clone(indices)
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// SetQueries replaces the dashboard queries without refreshing.
func (d *Dashboard) SetQueries(queries []query.Query) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = slices.Clone(queries)
}

// Queries returns the dashboard queries a panel selects.
func (d *Dashboard) Queries(sel dompanel.Queries) []query.Query {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]query.Query, 0, len(d.queries))
	for _, q := range d.queries {
		switch sel.Mode {
		case dompanel.QueryModePinned:
			if !q.Pinned {
				continue
			}
		case dompanel.QueryModeUnpinned:
			if q.Pinned {
				continue
			}
		case dompanel.QueryModeSelected:
			if !slices.Contains(sel.IDs, q.ID) {
				continue
			}
		}
		out = append(out, q)
	}
	return out
}

// Filters returns the active dashboard filters.
func (d *Dashboard) Filters() []query.Filter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.filters)
}

// AddFilter appends a filter and refreshes the panels.
func (d *Dashboard) AddFilter(ctx context.Context, f query.Filter) error {
	d.mu.Lock()
	d.filters = append(d.filters, f)
	d.mu.Unlock()

	d.logger.Info("Filter added",
		zap.String("type", string(f.Type)),
		zap.String("field", f.Field),
		zap.String("mandate", string(f.Mandate)))
	return d.Refresh(ctx)
}

// ClearFilters drops every filter and refreshes the panels.
func (d *Dashboard) ClearFilters(ctx context.Context) error {
	d.mu.Lock()
	d.filters = nil
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// FilterOnTerm turns a click on a chart point into a dashboard filter.
// A real term adds a terms filter on the panel field (its .raw variant when
// mapped); the missing point adds an exists filter. Negate flips the mandate.
// Other synthetic points are ignored. Returns the added filter, if any.
func (d *Dashboard) FilterOnTerm(ctx context.Context, panelID, label, meta string, negate bool) (*query.Filter, error) {
	p, err := d.Panel(panelID)
	if err != nil {
		return nil, err
	}
	def := p.Definition()
	// Labels are values of the aggregated field, so the filter targets it
	// rather than the legacy field option.
	field := d.resolveField(ctx, def.AggField)

	var f query.Filter
	switch meta {
	case "":
		mandate := query.Must
		if negate {
			mandate = query.MustNot
		}
		f, err = query.NewTermsFilter(field, label, mandate)
	case series.MetaMissing:
		mandate := query.MustNot
		if negate {
			mandate = query.Must
		}
		f, err = query.NewExistsFilter(field, mandate)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	if err := d.AddFilter(ctx, f); err != nil {
		return &f, err
	}
	return &f, nil
}

func (d *Dashboard) resolveField(ctx context.Context, field string) string {
	if d.fields == nil {
		return field
	}
	indices := d.Indices()
	if len(indices) == 0 {
		return field
	}
	resolved, err := d.fields.ResolveField(ctx, indices, field)
	if err != nil {
		d.logger.Warn("Failed to resolve field mapping, using plain field",
			zap.String("field", field), zap.Error(err))
		return field
	}
	return resolved
}

// Run refreshes the dashboard every interval until ctx is done.
// A non-positive interval disables auto-refresh.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx = logpkg.WithFields(ctx, zap.String("trigger", "auto_refresh"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.logger.Warn("Auto-refresh failed", zap.Error(err))
			}
		}
	}
}
