// Package app wires configuration, logging, storage, services and the
// HTTP server together.
package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/config"
	"github.com/adanyl0v/go-task-tracker/internal/delivery/http/v1"
	"github.com/adanyl0v/go-task-tracker/internal/services"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

type App struct {
	logger   zerolog.Logger
	cfg      *config.Config
	store    storage.Store
	registry *prometheus.Registry
}

// New reads the config from the environment, builds the application
// logger and opens the configured store. The caller must Close the App.
func New(ctx context.Context) (*App, error) {
	logger := newDefaultLogger()

	cfg, err := readConfig(logger, config.NewEnvReader())
	if err != nil {
		return nil, err
	}

	logger, err = newApplicationLogger(logger, cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		logger:   logger,
		cfg:      cfg,
		store:    store,
		registry: registry,
	}, nil
}

func (a *App) Close() {
	a.store.Close()
}

// Migrate creates the tables and indexes if they do not exist.
func (a *App) Migrate(ctx context.Context) error {
	err := a.store.EnsureSchema(ctx)
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to migrate")
		return err
	}
	a.logger.Info().Msg("migrated schema")
	return nil
}

// Serve migrates the schema and serves the API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	err := a.Migrate(ctx)
	if err != nil {
		return err
	}

	router, err := a.Handler()
	if err != nil {
		return err
	}
	return a.listenAndServeHTTP(ctx, router)
}

// Handler builds the services on top of the store and returns the
// HTTP router serving them.
func (a *App) Handler() (*gin.Engine, error) {
	auditMetrics, err := services.NewAuditMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	activityService := services.NewActivityService(a.logger, a.store, auditMetrics, nil)
	taskService := services.NewTaskService(a.logger, a.store, activityService, nil)
	dashboardService := services.NewDashboardService(a.logger, a.store, a.store, nil)

	location, err := a.cfg.Display.Location()
	if err != nil {
		return nil, err
	}

	v1Handler := v1.New(
		a.logger,
		taskService,
		activityService,
		dashboardService,
		location,
		a.cfg.Auth.Issuer,
		a.cfg.Auth.SigningKey,
	)
	return a.newRouter(v1Handler)
}
