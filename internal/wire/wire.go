//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/db"
	"github.com/sevigo/review-relay/internal/server/handler"
	"github.com/sevigo/review-relay/internal/storage"
)

func InitializeApp() (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		config.LoadConfig,
		db.NewDatabase,
		storage.NewRepoStore,
		storage.NewRuleStore,
		storage.NewKeywordStore,
		storage.NewReviewStore,
		storage.NewUsageStore,
		storage.NewStatStore,
		handler.NewWebhookHandler,
		handler.NewReviewHandler,
		provideLoggerConfig,
		provideLogWriter,
		provideSlogLogger,
		provideDBConfig,
		provideSQLX,
		provideGitHubAppConfig,
		providePlatformRegistry,
		provideWebhookRegistry,
		provideAIClient,
		provideOrchestrator,
		provideReviewJob,
		provideDispatcher,
		provideJobDispatcher,
		provideServer,
	)
	return &app.App{}, nil, nil
}
