package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sevigo/review-relay/internal/core"
)

// UsageStore records every AI backend call for cost accounting. Failed calls
// are recorded too; accounting never skips a request that consumed tokens.
type UsageStore interface {
	Record(ctx context.Context, usage *core.AIUsageLog) error
	TotalCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

type postgresUsageStore struct {
	db *sqlx.DB
}

// NewUsageStore creates a Postgres-backed UsageStore.
func NewUsageStore(db *sqlx.DB) UsageStore {
	return &postgresUsageStore{db: db}
}

func (s *postgresUsageStore) Record(ctx context.Context, usage *core.AIUsageLog) error {
	query := `
		INSERT INTO ai_usage_logs (review_id, rule_id, request_id, input_tokens, output_tokens, total_tokens,
		                           estimated_cost, model_name, duration_ms, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		usage.ReviewID, usage.RuleID, usage.RequestID, usage.InputTokens, usage.OutputTokens, usage.TotalTokens,
		usage.EstimatedCost, usage.ModelName, usage.DurationMs, usage.Success, usage.ErrorMessage, now,
	).Scan(&usage.ID)
	if err != nil {
		return fmt.Errorf("failed to record AI usage: %w", err)
	}
	usage.CreatedAt = now
	return nil
}

func (s *postgresUsageStore) TotalCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(estimated_cost), 0) FROM ai_usage_logs WHERE created_at >= $1`
	if err := s.db.QueryRowContext(ctx, query, since).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// RuleStatRow is one rule's aggregated counters for a single day.
type RuleStatRow struct {
	RuleID        int64
	Day           time.Time
	Executions    int64
	IssuesFound   int64
	TokensUsed    int64
	EstimatedCost decimal.Decimal
}

// StatStore maintains daily per-rule counters. All increments happen inside
// SQL via upsert so concurrent reviews can update the same (rule, day) row
// without a read-modify-write race.
type StatStore interface {
	RecordExecution(ctx context.Context, ruleID int64, issuesFound int, tokensUsed int64, cost decimal.Decimal) error
	ListForDay(ctx context.Context, day time.Time) ([]RuleStatRow, error)
}

type postgresStatStore struct {
	db *sqlx.DB
}

// NewStatStore creates a Postgres-backed StatStore.
func NewStatStore(db *sqlx.DB) StatStore {
	return &postgresStatStore{db: db}
}

func (s *postgresStatStore) RecordExecution(ctx context.Context, ruleID int64, issuesFound int, tokensUsed int64, cost decimal.Decimal) error {
	query := `
		INSERT INTO rule_statistics (rule_id, day, executions, issues_found, tokens_used, estimated_cost)
		VALUES ($1, $2, 1, $3, $4, $5)
		ON CONFLICT (rule_id, day)
		DO UPDATE SET executions     = rule_statistics.executions + 1,
		              issues_found   = rule_statistics.issues_found + EXCLUDED.issues_found,
		              tokens_used    = rule_statistics.tokens_used + EXCLUDED.tokens_used,
		              estimated_cost = rule_statistics.estimated_cost + EXCLUDED.estimated_cost`
	day := time.Now().UTC().Truncate(24 * time.Hour)
	_, err := s.db.ExecContext(ctx, query, ruleID, day, issuesFound, tokensUsed, cost)
	return err
}

func (s *postgresStatStore) ListForDay(ctx context.Context, day time.Time) ([]RuleStatRow, error) {
	query := `
		SELECT rule_id, day, executions, issues_found, tokens_used, estimated_cost
		FROM rule_statistics WHERE day = $1 ORDER BY rule_id`
	rows, err := s.db.QueryContext(ctx, query, day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stats []RuleStatRow
	for rows.Next() {
		var r RuleStatRow
		if err := rows.Scan(&r.RuleID, &r.Day, &r.Executions, &r.IssuesFound, &r.TokensUsed, &r.EstimatedCost); err != nil {
			return nil, err
		}
		stats = append(stats, r)
	}
	return stats, rows.Err()
}
