package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReviewStatus is the lifecycle state of one pipeline run.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
	ReviewFailed     ReviewStatus = "failed"
)

// ReviewRecord is the audit entity tracking one pipeline run. It is owned
// exclusively by the orchestrator for the duration of the run and transitions
// exactly once to a terminal state.
type ReviewRecord struct {
	ID                int64
	RepositoryID      int64
	PullRequestNumber int
	PullRequestTitle  string
	Author            string
	Status            ReviewStatus
	StartedAt         time.Time
	CompletedAt       *time.Time
	FilesProcessed    int
	CommentsGenerated int
	TokensConsumed    int64
	EstimatedCost     decimal.Decimal
	ErrorMessage      string
}

// ReviewComment is a single comment destined for the pull request. A zero
// LineNumber means the platform should anchor it at the top of the file.
type ReviewComment struct {
	LineNumber int
	Text       string
	Severity   string
	Category   string
	RuleName   string
}

// FileReviewOutcome records what happened to one processed file.
type FileReviewOutcome struct {
	ID              int64
	ReviewID        int64
	FilePath        string
	ChangeType      FileChangeType
	LinesAdded      int
	LinesDeleted    int
	MatchedKeywords []string
	Comments        []ReviewComment
	TokensConsumed  int64
	ProcessedAt     time.Time
}

// AIUsageLog tracks one call to the AI review backend for cost accounting.
type AIUsageLog struct {
	ID            int64
	ReviewID      int64
	RuleID        int64
	RequestID     string
	InputTokens   int
	OutputTokens  int
	TotalTokens   int
	EstimatedCost decimal.Decimal
	ModelName     string
	DurationMs    int64
	Success       bool
	ErrorMessage  string
	CreatedAt     time.Time
}

// EstimateCost computes tokens * pricePer1000 / 1000 with exact decimal
// arithmetic so repeated runs never drift.
func EstimateCost(tokens int64, pricePer1000 decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(tokens).Mul(pricePer1000).Div(decimal.NewFromInt(1000))
}

// FormatComment renders a review comment for publication: severity marker,
// optional category tag, and the originating rule name.
func FormatComment(c ReviewComment) string {
	marker := "🔵"
	switch strings.ToUpper(c.Severity) {
	case "ERROR":
		marker = "🔴"
	case "WARNING":
		marker = "🟡"
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(" ")
	if c.Category != "" {
		fmt.Fprintf(&b, "[%s] ", c.Category)
	}
	b.WriteString(c.Text)
	if c.RuleName != "" {
		fmt.Fprintf(&b, " (Rule: %s)", c.RuleName)
	}
	return strings.TrimSpace(b.String())
}

// KeywordAlertText renders the alert comment published when a hot keyword
// matches a file's diff.
func KeywordAlertText(k HotKeyword) string {
	return fmt.Sprintf("⚠️ **%s Alert**: %s", k.Category, k.AlertMessage)
}
