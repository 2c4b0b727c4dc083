// Package app ties the wired components together and owns the start/stop
// ordering.
package app

import (
	"log/slog"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/db"
	"github.com/sevigo/review-relay/internal/jobs"
	"github.com/sevigo/review-relay/internal/server"
	"github.com/sevigo/review-relay/internal/storage"
)

// App holds the main application components. The stores are exported for the
// admin CLI, which shares the wired graph with the server.
type App struct {
	Repos    storage.RepoStore
	Rules    storage.RuleStore
	Keywords storage.KeywordStore
	Reviews  storage.ReviewStore

	cfg        *config.Config
	server     *server.Server
	dispatcher *jobs.Dispatcher
	dbConn     *db.DB
	logger     *slog.Logger
}

// NewApp assembles the application from its wired components.
func NewApp(cfg *config.Config, dbConn *db.DB, dispatcher *jobs.Dispatcher, srv *server.Server,
	repos storage.RepoStore, rules storage.RuleStore, keywords storage.KeywordStore, reviews storage.ReviewStore,
	logger *slog.Logger) *App {
	return &App{
		Repos:      repos,
		Rules:      rules,
		Keywords:   keywords,
		Reviews:    reviews,
		cfg:        cfg,
		server:     srv,
		dispatcher: dispatcher,
		dbConn:     dbConn,
		logger:     logger,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting review-relay",
		"server_port", a.cfg.ServerPort,
		"max_workers", a.cfg.MaxWorkers,
		"queue_size", a.cfg.QueueSize,
	)
	return a.server.Start()
}

// Stop shuts the application down: server first so no new webhooks arrive,
// then the dispatcher so queued reviews drain, then the database.
func (a *App) Stop() error {
	a.logger.Info("shutting down review-relay")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("review-relay stopped")
	return nil
}
