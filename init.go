package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tournevent/courierhub/internal/config"
	"github.com/tournevent/courierhub/internal/events"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/pkg/dispatch"
	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/tournevent/courierhub/pkg/shipper/catalog"
	"github.com/tournevent/courierhub/pkg/shipper/factory"
	"github.com/tournevent/courierhub/pkg/shipper/secrets"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	resolver *catalog.Resolver
	factory  *factory.Factory
	service  *dispatch.Service
	closers  []func() error
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

func initApp(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = telemetry.NewMetrics(a.registry)

	resolver, err := a.initResolver(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.resolver = resolver

	tokens, err := a.initTokenCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rates, err := cfg.Rates()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.factory = factory.New(resolver, wire.Env{
		HTTP:   wire.NewHTTPClient(cfg.HTTPTimeout, logger),
		Tokens: tokens,
		Logger: logger,
		Tracer: tracer,
	})
	a.service = dispatch.New(dispatch.Config{
		Maker:     a.factory,
		Directory: resolver,
		Rates:     rates,
		Logger:    logger,
		Tracer:    tracer,
		Observer:  a.metrics,
	})
	return a, nil
}

func (a *app) initResolver(ctx context.Context) (*catalog.Resolver, error) {
	cat := catalog.DefaultCatalog()
	if a.cfg.CatalogPath != "" {
		loaded, err := catalog.LoadCatalog(a.cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}

	var overrides catalog.OverrideSource = catalog.NewFileOverrides(a.cfg.OverridesPath)
	if a.cfg.DatabaseURL != "" {
		db, err := catalog.OpenPostgres(a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		store := catalog.NewGormOverrides(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		overrides = store
	}

	var decrypter secrets.Decrypter
	if a.cfg.SecretKey != "" {
		box, err := secrets.NewBox(a.cfg.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("SECRET_KEY: %w", err)
		}
		decrypter = box
	}

	a.logger.Debug("Carrier catalog loaded",
		zap.Int("carriers", len(cat.Codes())),
		zap.Bool("database_overrides", a.cfg.DatabaseURL != ""),
	)
	return catalog.NewResolver(cat, overrides, decrypter, a.logger), nil
}

func (a *app) initTokenCache(ctx context.Context) (*authcache.Cache, error) {
	var store authcache.Store = authcache.NewMemoryStore()
	if a.cfg.RedisURL != "" {
		rs, err := authcache.NewRedisStore(a.cfg.RedisURL, a.cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis token store: %w", err)
		}
		store = rs
	}
	return authcache.New(store, a.logger, authcache.WithObserver(a.metrics)), nil
}

// publisher returns the status event sink; Kafka when brokers are configured.
func (a *app) publisher() events.Publisher {
	if len(a.cfg.KafkaBrokers) == 0 {
		return events.Nop{}
	}
	p := events.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
	a.closers = append(a.closers, p.Close)
	return p
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Failed to release resources", zap.Error(err))
	}
	a.closers = nil
}
