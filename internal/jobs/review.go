package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/review"
)

// ReviewJob executes one review pipeline run per dispatched event, under a
// per-run deadline so a stuck platform or AI backend cannot pin a worker
// forever.
type ReviewJob struct {
	orchestrator *review.Orchestrator
	timeout      time.Duration
	logger       *slog.Logger
}

// NewReviewJob creates the job executed by dispatcher workers.
func NewReviewJob(orchestrator *review.Orchestrator, timeout time.Duration, logger *slog.Logger) core.Job {
	if orchestrator == nil {
		panic("orchestrator cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ReviewJob{orchestrator: orchestrator, timeout: timeout, logger: logger}
}

// Run validates the event and hands it to the orchestrator.
func (j *ReviewJob) Run(ctx context.Context, event *core.CanonicalEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if !event.Platform.Valid() {
		return fmt.Errorf("%w: %q", core.ErrPlatformNotSupported, event.Platform)
	}
	if event.Repository.FullName == "" {
		return fmt.Errorf("event carries no repository")
	}
	if event.PullRequest == nil {
		return fmt.Errorf("event carries no pull request")
	}

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	j.logger.Info("starting review job",
		"platform", event.Platform,
		"repo", event.Repository.FullName,
		"pr", event.PullRequest.Number,
	)
	return j.orchestrator.Run(runCtx, event)
}
