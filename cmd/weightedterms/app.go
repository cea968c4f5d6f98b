package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/config"
	"github.com/kailas-cloud/weightedterms/internal/db"
	dbRedis "github.com/kailas-cloud/weightedterms/internal/db/redis"
	"github.com/kailas-cloud/weightedterms/internal/metrics"
	searchrepo "github.com/kailas-cloud/weightedterms/internal/repository/search"
	weightsrepo "github.com/kailas-cloud/weightedterms/internal/repository/weights"
	"github.com/kailas-cloud/weightedterms/internal/usecase/dashboard"
	healthuc "github.com/kailas-cloud/weightedterms/internal/usecase/health"
	paneluc "github.com/kailas-cloud/weightedterms/internal/usecase/panel"
	"github.com/kailas-cloud/weightedterms/internal/usecase/weighting"
)

// app is the composition root shared by serve and render.
type app struct {
	dashboard *dashboard.Dashboard
	health    *healthuc.Service
	es        *elastic.Client
	store     db.Store
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.es != nil {
		a.es.Stop()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterPanelMetrics()

	esClient, err := newElasticClient(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	search := searchrepo.New(esClient)
	logger.Info("Elasticsearch client created", zap.Strings("urls", cfg.Elasticsearch.URLs))

	// Weights fetcher chain: HTTP -> Cached
	var fetcher weighting.Fetcher = weightsrepo.NewHTTPFetcher(
		time.Duration(cfg.Weights.FetchTimeoutSec)*time.Second, logger)

	a := &app{es: esClient}
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to weights cache",
			zap.String("driver", cfg.Cache.Driver), zap.Strings("addrs", cfg.Cache.Addrs))

		a.store = store
		cachePinger = store
		fetcher = weightsrepo.NewCachedFetcher(fetcher, store,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.WeightsCacheTotal, logger)
	}

	resolver := weighting.NewResolver(fetcher, logger)

	dash := dashboard.New(search, dashboard.NewBus(), logger)
	dash.SetQueries(cfg.Dashboard.Queries)
	for _, pc := range cfg.Panels {
		p, err := paneluc.New(pc.Definition(), search, resolver, dash, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("panel %s: %w", pc.ID, err)
		}
		if err := dash.Add(p); err != nil {
			a.Close()
			return nil, err
		}
	}
	// Indices last: setting them publishes a refresh, which is a no-op before Initialize.
	if err := dash.SetIndices(ctx, cfg.Dashboard.Indices); err != nil {
		logger.Warn("Initial refresh failed", zap.Error(err))
	}

	a.dashboard = dash
	a.health = healthuc.New(search, cachePinger)
	return a, nil
}

func newElasticClient(cfg config.ElasticsearchConfig) (*elastic.Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URLs...),
		elastic.SetSniff(cfg.Sniff),
		elastic.SetHealthcheck(cfg.Healthcheck),
		elastic.SetHttpClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}
