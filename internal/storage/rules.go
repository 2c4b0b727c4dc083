package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/review-relay/internal/core"
)

// RuleStore manages review rules and their per-repository links.
type RuleStore interface {
	ListForRepository(ctx context.Context, repoID int64) ([]core.RepoRule, error)
	List(ctx context.Context) ([]core.Rule, error)
	Create(ctx context.Context, rule *core.Rule) error
	Attach(ctx context.Context, repoID, ruleID int64, priorityOverride *int, filePatternOverride *string) error
}

type postgresRuleStore struct {
	db *sqlx.DB
}

// NewRuleStore creates a Postgres-backed RuleStore.
func NewRuleStore(db *sqlx.DB) RuleStore {
	return &postgresRuleStore{db: db}
}

// ListForRepository returns the rules linked to a repository with any link
// overrides applied. Inactive rules are included so callers can report them;
// selection filters on Active.
func (s *postgresRuleStore) ListForRepository(ctx context.Context, repoID int64) ([]core.RepoRule, error) {
	query := `
		SELECT r.id, r.name, r.description, r.review_endpoint, r.review_key,
		       r.priority, r.file_patterns, r.active, r.created_at, r.updated_at,
		       rr.priority_override, rr.file_pattern_override
		FROM rules r
		JOIN repository_rules rr ON rr.rule_id = r.id
		WHERE rr.repository_id = $1`
	rows, err := s.db.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rules []core.RepoRule
	for rows.Next() {
		var r core.RepoRule
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.ReviewEndpoint, &r.ReviewKey,
			&r.Priority, &r.FilePatterns, &r.Active, &r.CreatedAt, &r.UpdatedAt,
			&r.PriorityOverride, &r.FilePatternOverride); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *postgresRuleStore) List(ctx context.Context) ([]core.Rule, error) {
	query := `
		SELECT id, name, description, review_endpoint, review_key, priority, file_patterns, active, created_at, updated_at
		FROM rules ORDER BY priority, name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rules []core.Rule
	for rows.Next() {
		var r core.Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.ReviewEndpoint, &r.ReviewKey,
			&r.Priority, &r.FilePatterns, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *postgresRuleStore) Create(ctx context.Context, rule *core.Rule) error {
	query := `
		INSERT INTO rules (name, description, review_endpoint, review_key, priority, file_patterns, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		rule.Name, rule.Description, rule.ReviewEndpoint, rule.ReviewKey,
		rule.Priority, rule.FilePatterns, rule.Active, now,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to create rule %s: %w", rule.Name, err)
	}
	rule.CreatedAt = now
	return nil
}

func (s *postgresRuleStore) Attach(ctx context.Context, repoID, ruleID int64, priorityOverride *int, filePatternOverride *string) error {
	query := `
		INSERT INTO repository_rules (repository_id, rule_id, priority_override, file_pattern_override)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (repository_id, rule_id)
		DO UPDATE SET priority_override = EXCLUDED.priority_override, file_pattern_override = EXCLUDED.file_pattern_override`
	_, err := s.db.ExecContext(ctx, query, repoID, ruleID, priorityOverride, filePatternOverride)
	return err
}
