package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/db"
	"github.com/rpattn/catalog-export/internal/export"
	"github.com/rpattn/catalog-export/internal/fields"
	"github.com/rpattn/catalog-export/internal/metrics"
	"github.com/rpattn/catalog-export/internal/policy"
	"github.com/rpattn/catalog-export/internal/repository"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	conn      *db.Connection
	service   *export.Service
	relations repository.RelationRepository
	profiles  repository.ProfileWriter
	gatherer  prometheus.Gatherer
}

func openApp(ctx context.Context, migrate bool) (*app, error) {
	if migrate {
		if err := db.RunMigrations(cfg.Database); err != nil {
			return nil, err
		}
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, eris.Wrap(err, "connect to database")
	}

	// The registry is built once; attributes added later need a restart.
	attributes, err := repository.NewAttributeRepository(conn.Pool).List(ctx)
	if err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "load category attributes")
	}
	registry := fields.NewRegistry(policy.DiscountPricing{}, policy.RegionalStock{}, attributes)
	zap.L().Info("field registry built", zap.Int("fields", len(registry.Specs())), zap.Int("attributes", len(attributes)))

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	relations := repository.NewRelationRepository(conn.Pool)
	service := export.NewService(
		repository.NewProfileRepository(conn.Pool),
		repository.NewCatalogRepository(conn.Pool),
		repository.NewCurrencyRepository(conn.Pool),
		repository.NewClientUserRepository(conn.Pool),
		relations,
		registry,
		export.WithChunkSize(cfg.Export.ChunkSize),
		export.WithPreviewLimit(cfg.Export.PreviewLimit),
		export.WithDefaultCurrency(cfg.Export.DefaultCurrency),
		export.WithMetrics(metrics.NewExport(promRegistry)),
	)

	return &app{
		conn:      conn,
		service:   service,
		relations: relations,
		profiles:  repository.NewProfileWriter(conn.Pool),
		gatherer:  promRegistry,
	}, nil
}

func (a *app) Close() {
	a.conn.Close()
}
