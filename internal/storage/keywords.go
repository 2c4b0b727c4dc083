package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/review-relay/internal/core"
)

// KeywordStore manages hot keywords and their trigger counters.
type KeywordStore interface {
	ListActive(ctx context.Context) ([]core.HotKeyword, error)
	List(ctx context.Context) ([]core.HotKeyword, error)
	Create(ctx context.Context, k *core.HotKeyword) error
	// IncrementTriggerCount bumps the counter atomically in SQL so concurrent
	// reviews never lose updates.
	IncrementTriggerCount(ctx context.Context, id int64) error
}

type postgresKeywordStore struct {
	db *sqlx.DB
}

// NewKeywordStore creates a Postgres-backed KeywordStore.
func NewKeywordStore(db *sqlx.DB) KeywordStore {
	return &postgresKeywordStore{db: db}
}

const keywordColumns = `id, pattern, is_regex, file_patterns, severity, category, alert_message, active, trigger_count, created_at`

func (s *postgresKeywordStore) list(ctx context.Context, query string) ([]core.HotKeyword, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keywords []core.HotKeyword
	for rows.Next() {
		var k core.HotKeyword
		if err := rows.Scan(&k.ID, &k.Pattern, &k.IsRegex, &k.FilePatterns, &k.Severity,
			&k.Category, &k.AlertMessage, &k.Active, &k.TriggerCount, &k.CreatedAt); err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func (s *postgresKeywordStore) ListActive(ctx context.Context) ([]core.HotKeyword, error) {
	return s.list(ctx, `SELECT `+keywordColumns+` FROM hot_keywords WHERE active ORDER BY id`)
}

func (s *postgresKeywordStore) List(ctx context.Context) ([]core.HotKeyword, error) {
	return s.list(ctx, `SELECT `+keywordColumns+` FROM hot_keywords ORDER BY id`)
}

func (s *postgresKeywordStore) Create(ctx context.Context, k *core.HotKeyword) error {
	query := `
		INSERT INTO hot_keywords (pattern, is_regex, file_patterns, severity, category, alert_message, active, trigger_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		RETURNING id`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		k.Pattern, k.IsRegex, k.FilePatterns, k.Severity, k.Category, k.AlertMessage, k.Active, now,
	).Scan(&k.ID)
	if err != nil {
		return fmt.Errorf("failed to create hot keyword %q: %w", k.Pattern, err)
	}
	k.CreatedAt = now
	return nil
}

func (s *postgresKeywordStore) IncrementTriggerCount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE hot_keywords SET trigger_count = trigger_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
