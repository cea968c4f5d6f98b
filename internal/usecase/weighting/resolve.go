// Package weighting resolves weight tables and applies them to aggregation results.
package weighting

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/domain"
	"github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/weights"
)

// Origin names where a resolved table came from.
type Origin string

// Resolution origins.
const (
	OriginManual   Origin = "manual"
	OriginFile     Origin = "file"
	OriginFallback Origin = "fallback"
	OriginNone     Origin = "none"
)

// Source is the weights configuration of a panel.
type Source struct {
	ManualJSON string
	FileURL    string
}

// Resolution is the outcome of resolving a Source.
type Resolution struct {
	Table    weights.Table
	Origin   Origin
	Messages []panel.Message
}

// Resolver picks a weights table: manual JSON, then the weights file, then none.
// Failures never escape: they become messages plus a safe default.
type Resolver struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewResolver creates a Resolver. fetcher may be nil when no panel uses a weights file.
func NewResolver(fetcher Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Resolve follows the precedence manual JSON -> file URL -> empty table.
func (r *Resolver) Resolve(ctx context.Context, src Source) Resolution {
	var msgs []panel.Message

	if src.ManualJSON != "" {
		tbl, err := weights.Parse([]byte(src.ManualJSON))
		if err == nil {
			r.logger.Info("Using manual weights", zap.Int("entries", tbl.Len()))
			return Resolution{
				Table:    tbl,
				Origin:   OriginManual,
				Messages: []panel.Message{{Severity: panel.SeverityInfo, Text: "using manual weights"}},
			}
		}
		r.logger.Warn("Invalid manual weights, falling through", zap.Error(err))
		msgs = append(msgs, panel.Message{
			Severity: panel.SeverityWarning,
			Text:     fmt.Sprintf("invalid manual weights (%v), ignoring them", err),
		})
	}

	if src.FileURL != "" {
		tbl, err := r.fromFile(ctx, src.FileURL)
		if err != nil {
			r.logger.Warn("Failed to load weights file",
				zap.String("url", src.FileURL), zap.Error(err))
			msgs = append(msgs, panel.Message{
				Severity: panel.SeverityError,
				Text:     "unable to load from: " + src.FileURL + " so continuing without weights.",
			})
			return Resolution{Table: weights.Empty(), Origin: OriginFallback, Messages: msgs}
		}
		r.logger.Info("Using weights file",
			zap.String("url", src.FileURL), zap.Int("entries", tbl.Len()))
		msgs = append(msgs, panel.Message{
			Severity: panel.SeverityInfo,
			Text:     "using weights loaded from: " + src.FileURL,
		})
		return Resolution{Table: tbl, Origin: OriginFile, Messages: msgs}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, panel.Message{Severity: panel.SeverityInfo, Text: "no weights configured"})
	}
	return Resolution{Table: weights.Empty(), Origin: OriginNone, Messages: msgs}
}

// falsy payloads are treated as an empty response.
var falsy = [][]byte{[]byte("null"), []byte("false"), []byte("0"), []byte(`""`)}

func (r *Resolver) fromFile(ctx context.Context, url string) (weights.Table, error) {
	if r.fetcher == nil {
		return weights.Table{}, fmt.Errorf("no weights fetcher configured: %w", domain.ErrWeightsUnavailable)
	}
	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return weights.Table{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	tbl, err := parseBody(body)
	if err != nil {
		r.evict(ctx, url)
		return weights.Table{}, err
	}
	return tbl, nil
}

func parseBody(body []byte) (weights.Table, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return weights.Table{}, fmt.Errorf("empty body: %w", domain.ErrWeightsUnavailable)
	}
	for _, f := range falsy {
		if bytes.Equal(body, f) {
			return weights.Table{}, fmt.Errorf("falsy body %s: %w", f, domain.ErrWeightsUnavailable)
		}
	}

	tbl, err := weights.Parse(body)
	if err != nil {
		return weights.Table{}, fmt.Errorf("%w: %w", domain.ErrInvalidWeights, err)
	}
	return tbl, nil
}

// evict drops an unusable payload from a caching fetcher.
func (r *Resolver) evict(ctx context.Context, url string) {
	ev, ok := r.fetcher.(Evicter)
	if !ok {
		return
	}
	if err := ev.Evict(ctx, url); err != nil {
		r.logger.Warn("Failed to evict cached weights", zap.String("url", url), zap.Error(err))
	}
}
