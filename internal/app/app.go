// Package app holds the long-running webhook service: the HTTP server, the
// check worker pool and the history database they share.
package app

import (
	"context"
	"log/slog"

	"github.com/sevigo/migration-warden/internal/config"
	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/server"
	"github.com/sevigo/migration-warden/internal/storage"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	server     *server.Server
	dispatcher core.JobDispatcher
	Store      storage.Store
	logger     *slog.Logger
}

// NewApp assembles the service from already-built components.
func NewApp(ctx context.Context, cfg *config.Config, srv *server.Server, dispatcher core.JobDispatcher, store storage.Store, logger *slog.Logger) *App {
	logger.Info("migration warden initialized",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.ModelName(),
		"review_enabled", cfg.AI.ReviewEnabled(),
		"max_workers", cfg.Server.MaxWorkers)

	return &App{
		ctx:        ctx,
		cfg:        cfg,
		server:     srv,
		dispatcher: dispatcher,
		Store:      store,
		logger:     logger,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting migration warden", "server_port", a.cfg.Server.Port)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly. Queued checks are allowed to
// finish; the database is closed by the wire cleanup afterwards.
func (a *App) Stop() error {
	a.logger.Info("shutting down migration warden")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("migration warden stopped")
	return nil
}
