// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"fmt"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/db"
	"github.com/sevigo/review-relay/internal/server/handler"
	"github.com/sevigo/review-relay/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp() (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := provideSlogLogger(provideLoggerConfig(cfg), provideLogWriter(cfg))

	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlxDB := provideSQLX(dbConn)

	repoStore := storage.NewRepoStore(sqlxDB)
	ruleStore := storage.NewRuleStore(sqlxDB)
	keywordStore := storage.NewKeywordStore(sqlxDB)
	reviewStore := storage.NewReviewStore(sqlxDB)
	usageStore := storage.NewUsageStore(sqlxDB)
	statStore := storage.NewStatStore(sqlxDB)

	adapters := providePlatformRegistry(provideGitHubAppConfig(cfg), slogLogger)
	parsers := provideWebhookRegistry()
	aiClient := provideAIClient(slogLogger)

	orchestrator := provideOrchestrator(cfg, repoStore, ruleStore, keywordStore,
		reviewStore, usageStore, statStore, adapters, aiClient, slogLogger)

	reviewJob := provideReviewJob(cfg, orchestrator, slogLogger)
	dispatcher := provideDispatcher(cfg, reviewJob, slogLogger)

	webhookHandler := handler.NewWebhookHandler(parsers, adapters, repoStore, provideJobDispatcher(dispatcher), slogLogger)
	reviewHandler := handler.NewReviewHandler(orchestrator, slogLogger)
	srv := provideServer(cfg, webhookHandler, reviewHandler, slogLogger)

	application := app.NewApp(cfg, dbConn, dispatcher, srv,
		repoStore, ruleStore, keywordStore, reviewStore, slogLogger)

	cleanup := func() {
		dbCleanup()
	}
	return application, cleanup, nil
}
