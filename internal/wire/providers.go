// Package wire assembles the application object graph.
package wire

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/review-relay/internal/ai"
	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/db"
	"github.com/sevigo/review-relay/internal/jobs"
	"github.com/sevigo/review-relay/internal/logger"
	"github.com/sevigo/review-relay/internal/platform"
	"github.com/sevigo/review-relay/internal/review"
	"github.com/sevigo/review-relay/internal/server"
	"github.com/sevigo/review-relay/internal/server/handler"
	"github.com/sevigo/review-relay/internal/storage"
	"github.com/sevigo/review-relay/internal/webhook"
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stderr":
		return os.Stderr
	case "file":
		f, _ := os.OpenFile("review-relay.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		return f
	default:
		return os.Stdout
	}
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideSQLX(dbConn *db.DB) *sqlx.DB {
	return dbConn.DB
}

// newOutboundHTTPClient is shared by the Bitbucket adapter and the AI client.
// The overall per-call deadline comes from the caller's context; this client
// only bounds the connection setup.
func newOutboundHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxConnsPerHost:     10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func provideGitHubAppConfig(cfg *config.Config) *platform.GitHubAppConfig {
	if cfg.GitHubApp.AppID == 0 {
		return nil
	}
	return &platform.GitHubAppConfig{
		AppID:          cfg.GitHubApp.AppID,
		InstallationID: cfg.GitHubApp.InstallationID,
		PrivateKeyPath: cfg.GitHubApp.PrivateKeyPath,
	}
}

func providePlatformRegistry(appCfg *platform.GitHubAppConfig, logger *slog.Logger) *platform.Registry {
	return platform.NewRegistry(
		platform.NewGitHubAdapter(appCfg, logger),
		platform.NewGitLabAdapter(logger),
		platform.NewBitbucketAdapter(newOutboundHTTPClient(), logger),
	)
}

func provideWebhookRegistry() *webhook.Registry {
	return webhook.DefaultRegistry()
}

func provideAIClient(logger *slog.Logger) ai.Client {
	return ai.NewClient(newOutboundHTTPClient(), logger)
}

func provideOrchestrator(
	cfg *config.Config,
	repos storage.RepoStore,
	rules storage.RuleStore,
	keywords storage.KeywordStore,
	reviews storage.ReviewStore,
	usage storage.UsageStore,
	stats storage.StatStore,
	adapters *platform.Registry,
	aiClient ai.Client,
	logger *slog.Logger,
) *review.Orchestrator {
	return review.NewOrchestrator(repos, rules, keywords, reviews, usage, stats,
		adapters, aiClient, cfg.CostPer1000Tokens, cfg.AICallTimeout, logger)
}

func provideReviewJob(cfg *config.Config, orchestrator *review.Orchestrator, logger *slog.Logger) core.Job {
	return jobs.NewReviewJob(orchestrator, cfg.ReviewTimeout, logger)
}

func provideDispatcher(cfg *config.Config, job core.Job, logger *slog.Logger) *jobs.Dispatcher {
	return jobs.NewDispatcher(job, cfg.MaxWorkers, cfg.QueueSize, logger)
}

func provideJobDispatcher(d *jobs.Dispatcher) core.JobDispatcher {
	return d
}

func provideServer(cfg *config.Config, webhooks *handler.WebhookHandler, reviews *handler.ReviewHandler, logger *slog.Logger) *server.Server {
	router := server.NewRouter(webhooks, reviews)
	return server.NewServer(cfg.ServerPort, router, logger)
}
