// Package review implements the pipeline that turns one accepted pull request
// event into published review comments and a persisted audit trail.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sevigo/review-relay/internal/ai"
	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/match"
	"github.com/sevigo/review-relay/internal/platform"
	"github.com/sevigo/review-relay/internal/storage"
)

const noIssuesSummary = "✅ Code review completed. No issues found. Great job!"

// Orchestrator drives the review pipeline for one event at a time. It owns
// the review record for the duration of the run: the record is created
// in progress and transitions exactly once to completed or failed.
type Orchestrator struct {
	repos    storage.RepoStore
	rules    storage.RuleStore
	keywords storage.KeywordStore
	reviews  storage.ReviewStore
	usage    storage.UsageStore
	stats    storage.StatStore
	adapters *platform.Registry
	ai       ai.Client

	costPer1000 decimal.Decimal
	aiTimeout   time.Duration
	logger      *slog.Logger
}

// NewOrchestrator wires the pipeline over its stores, adapters, and AI client.
func NewOrchestrator(
	repos storage.RepoStore,
	rules storage.RuleStore,
	keywords storage.KeywordStore,
	reviews storage.ReviewStore,
	usage storage.UsageStore,
	stats storage.StatStore,
	adapters *platform.Registry,
	aiClient ai.Client,
	costPer1000 decimal.Decimal,
	aiTimeout time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if aiTimeout <= 0 {
		aiTimeout = 30 * time.Second
	}
	return &Orchestrator{
		repos:       repos,
		rules:       rules,
		keywords:    keywords,
		reviews:     reviews,
		usage:       usage,
		stats:       stats,
		adapters:    adapters,
		ai:          aiClient,
		costPer1000: costPer1000,
		aiTimeout:   aiTimeout,
		logger:      logger,
	}
}

// Run executes the full pipeline for one canonical event. An unconfigured or
// inactive repository is a rejection: no record is created and
// ErrRepoNotConfigured is returned. Once a record exists, any failure marks
// it failed; comments already published stay published.
func (o *Orchestrator) Run(ctx context.Context, event *core.CanonicalEvent) error {
	if event.PullRequest == nil {
		return fmt.Errorf("event carries no pull request")
	}

	repo, err := o.resolveRepository(ctx, event)
	if err != nil {
		return err
	}

	record := &core.ReviewRecord{
		RepositoryID:      repo.ID,
		PullRequestNumber: event.PullRequest.Number,
		PullRequestTitle:  event.PullRequest.Title,
		Status:            core.ReviewInProgress,
	}
	if event.PullRequest.Author != nil {
		record.Author = event.PullRequest.Author.Username
	}
	if err := o.reviews.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to create review record: %w", err)
	}

	log := o.logger.With("review_id", record.ID, "repo", repo.FullName, "pr", event.PullRequest.Number)
	log.Info("review started")

	if err := o.runPipeline(ctx, log, repo, event, record); err != nil {
		log.Error("review failed", "error", err)
		if failErr := o.reviews.Fail(ctx, record.ID, err.Error()); failErr != nil {
			log.Error("failed to mark review as failed", "error", failErr)
		}
		return err
	}

	log.Info("review completed",
		"files", record.FilesProcessed,
		"comments", record.CommentsGenerated,
		"tokens", record.TokensConsumed,
		"cost", record.EstimatedCost.String(),
	)
	return nil
}

// resolveRepository looks the repository up by the platform's own ID first,
// then by full name. Both misses, or an inactive repository, reject the event.
func (o *Orchestrator) resolveRepository(ctx context.Context, event *core.CanonicalEvent) (*core.Repository, error) {
	repo, err := o.repos.GetByRemoteID(ctx, event.Platform, event.Repository.RemoteID)
	if errors.Is(err, storage.ErrNotFound) {
		repo, err = o.repos.GetByFullName(ctx, event.Platform, event.Repository.FullName)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", core.ErrRepoNotConfigured, event.Platform, event.Repository.FullName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository: %w", err)
	}
	if !repo.Active {
		return nil, fmt.Errorf("%w: %s is inactive", core.ErrRepoNotConfigured, repo.FullName)
	}
	return repo, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, log *slog.Logger, repo *core.Repository, event *core.CanonicalEvent, record *core.ReviewRecord) error {
	adapter, err := o.adapters.Resolve(repo.Platform)
	if err != nil {
		return err
	}

	settings, err := o.repos.GetPlatformSettings(ctx, repo.Platform)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to load platform settings: %w", err)
	}
	creds := core.ResolveCredentials(repo, settings)

	rules, err := o.rules.ListForRepository(ctx, repo.ID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	keywords, err := o.keywords.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load hot keywords: %w", err)
	}

	files, err := adapter.GetPullRequestFiles(ctx, creds, repo.FullName, event.PullRequest.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch changed files: %w", err)
	}

	var totalComments int
	var totalTokens int64
	for _, file := range files {
		if file.ChangeType == core.FileDeleted {
			log.Debug("skipping deleted file", "path", file.Path)
			continue
		}

		outcome, err := o.reviewFile(ctx, log, adapter, creds, repo, event, record, rules, keywords, file)
		if err != nil {
			return err
		}
		record.FilesProcessed++
		totalComments += len(outcome.Comments)
		totalTokens += outcome.TokensConsumed

		if err := o.reviews.AppendFileOutcome(ctx, outcome); err != nil {
			log.Warn("failed to persist file outcome", "path", file.Path, "error", err)
		}
	}

	if totalComments == 0 {
		if err := adapter.PostSummaryComment(ctx, creds, repo.FullName, event.PullRequest.Number, noIssuesSummary); err != nil {
			log.Warn("failed to post no-issues summary", "error", err)
		}
	}

	record.CommentsGenerated = totalComments
	record.TokensConsumed = totalTokens
	record.EstimatedCost = core.EstimateCost(totalTokens, o.costPer1000)
	if err := o.reviews.Complete(ctx, record); err != nil {
		return fmt.Errorf("failed to complete review record: %w", err)
	}
	return nil
}

// reviewFile runs the keyword scan and the per-rule AI calls for one file.
// Comments are published as soon as they exist. A transport failure on an AI
// call aborts the run after its telemetry is booked; comments already
// published stay published.
func (o *Orchestrator) reviewFile(
	ctx context.Context,
	log *slog.Logger,
	adapter platform.Adapter,
	creds core.Credentials,
	repo *core.Repository,
	event *core.CanonicalEvent,
	record *core.ReviewRecord,
	rules []core.RepoRule,
	keywords []core.HotKeyword,
	file core.ChangedFile,
) (*core.FileReviewOutcome, error) {
	outcome := &core.FileReviewOutcome{
		ReviewID:     record.ID,
		FilePath:     file.Path,
		ChangeType:   file.ChangeType,
		LinesAdded:   file.Additions,
		LinesDeleted: file.Deletions,
	}

	// Keyword hits carry no diff line to anchor to, so the alert goes out as
	// a summary comment carrying the file path rather than an inline comment.
	for _, k := range match.ScanKeywords(keywords, file.Path, file.Patch) {
		outcome.MatchedKeywords = append(outcome.MatchedKeywords, k.Pattern)
		alert := fmt.Sprintf("**%s**: %s", file.Path, core.KeywordAlertText(k))
		if err := adapter.PostSummaryComment(ctx, creds, repo.FullName, event.PullRequest.Number, alert); err != nil {
			log.Warn("failed to post keyword alert", "path", file.Path, "keyword", k.Pattern, "error", err)
		} else {
			outcome.Comments = append(outcome.Comments, core.ReviewComment{
				Text:     core.KeywordAlertText(k),
				Severity: k.Severity,
				Category: k.Category,
			})
		}
		if err := o.keywords.IncrementTriggerCount(ctx, k.ID); err != nil {
			log.Warn("failed to bump keyword trigger count", "keyword", k.Pattern, "error", err)
		}
	}

	for _, rule := range match.SelectRules(rules, file.Path) {
		result, aiErr := o.callAI(ctx, log, rule, event, file)

		outcome.TokensConsumed += int64(result.TotalTokens)
		o.recordUsage(ctx, log, record.ID, rule.ID, result)

		if aiErr != nil {
			return nil, fmt.Errorf("ai review failed for %s (rule %s): %w", file.Path, rule.Name, aiErr)
		}
		if !result.Success {
			continue
		}
		for _, c := range result.Comments {
			c.RuleName = rule.Name
			o.publishComment(ctx, log, adapter, creds, repo, event, file.Path, c)
			outcome.Comments = append(outcome.Comments, c)
		}
	}
	return outcome, nil
}

// callAI submits one (file, rule) pair under the per-call deadline. A
// transport error that survives the retry policy is returned alongside a
// failed result so the call still lands in the usage log before the run
// aborts.
func (o *Orchestrator) callAI(ctx context.Context, log *slog.Logger, rule core.RepoRule, event *core.CanonicalEvent, file core.ChangedFile) (*ai.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.aiTimeout)
	defer cancel()

	result, err := o.ai.Review(callCtx, ai.Request{
		Endpoint:          rule.ReviewEndpoint,
		Key:               rule.ReviewKey,
		FileName:          file.Path,
		FileDiff:          file.Patch,
		AdditionalContext: event.PullRequest.Title,
	})
	if err != nil {
		log.Error("ai review call failed", "rule", rule.Name, "path", file.Path, "error", err)
		return &ai.Result{Success: false, ErrorMessage: err.Error()}, err
	}
	return result, nil
}

// recordUsage books the call into the usage log and the daily rule counters.
// Accounting runs for failed calls too so costs never go missing.
func (o *Orchestrator) recordUsage(ctx context.Context, log *slog.Logger, reviewID, ruleID int64, result *ai.Result) {
	tokens := int64(result.TotalTokens)
	cost := core.EstimateCost(tokens, o.costPer1000)

	usage := &core.AIUsageLog{
		ReviewID:      reviewID,
		RuleID:        ruleID,
		RequestID:     result.RequestID,
		InputTokens:   result.InputTokens,
		OutputTokens:  result.OutputTokens,
		TotalTokens:   result.TotalTokens,
		EstimatedCost: cost,
		ModelName:     result.ModelName,
		DurationMs:    result.DurationMs,
		Success:       result.Success,
		ErrorMessage:  result.ErrorMessage,
	}
	if err := o.usage.Record(ctx, usage); err != nil {
		log.Warn("failed to record ai usage", "error", err)
	}
	issues := 0
	if result.HasIssues {
		issues = len(result.Comments)
	}
	if err := o.stats.RecordExecution(ctx, ruleID, issues, tokens, cost); err != nil {
		log.Warn("failed to record rule statistics", "error", err)
	}
}

// publishComment posts one finding. Line-anchored comments go inline; the
// adapter itself falls back to a summary comment when the anchor is rejected.
func (o *Orchestrator) publishComment(ctx context.Context, log *slog.Logger, adapter platform.Adapter, creds core.Credentials, repo *core.Repository, event *core.CanonicalEvent, path string, c core.ReviewComment) {
	text := core.FormatComment(c)
	var err error
	if c.LineNumber > 0 {
		err = adapter.PostInlineComment(ctx, creds, repo.FullName, event.PullRequest.Number, path, c.LineNumber, text)
	} else {
		err = adapter.PostSummaryComment(ctx, creds, repo.FullName, event.PullRequest.Number, fmt.Sprintf("**%s**:\n\n%s", path, text))
	}
	if err != nil {
		log.Warn("failed to publish comment", "path", path, "line", c.LineNumber, "error", err)
	}
}

// GetReviewStatus returns the persisted record for one review run.
func (o *Orchestrator) GetReviewStatus(ctx context.Context, id int64) (*core.ReviewRecord, error) {
	return o.reviews.GetByID(ctx, id)
}
