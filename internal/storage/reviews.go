package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevigo/review-relay/internal/core"
)

// ReviewStore owns the review audit trail: the per-run record, its terminal
// transition, and the per-file outcomes attached to it.
type ReviewStore interface {
	Create(ctx context.Context, review *core.ReviewRecord) error
	Complete(ctx context.Context, review *core.ReviewRecord) error
	Fail(ctx context.Context, id int64, errorMessage string) error
	GetByID(ctx context.Context, id int64) (*core.ReviewRecord, error)
	AppendFileOutcome(ctx context.Context, outcome *core.FileReviewOutcome) error
}

type postgresReviewStore struct {
	db *sqlx.DB
}

// NewReviewStore creates a Postgres-backed ReviewStore.
func NewReviewStore(db *sqlx.DB) ReviewStore {
	return &postgresReviewStore{db: db}
}

func (s *postgresReviewStore) Create(ctx context.Context, review *core.ReviewRecord) error {
	query := `
		INSERT INTO reviews (repository_id, pull_request_number, pull_request_title, author, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	now := time.Now()
	if review.Status == "" {
		review.Status = core.ReviewInProgress
	}
	err := s.db.QueryRowContext(ctx, query,
		review.RepositoryID, review.PullRequestNumber, review.PullRequestTitle,
		review.Author, review.Status, now,
	).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("failed to create review record: %w", err)
	}
	review.StartedAt = now
	return nil
}

// Complete marks the run completed and writes the final aggregates in one
// statement.
func (s *postgresReviewStore) Complete(ctx context.Context, review *core.ReviewRecord) error {
	query := `
		UPDATE reviews
		SET status = $1, completed_at = $2, files_processed = $3, comments_generated = $4,
		    tokens_consumed = $5, estimated_cost = $6
		WHERE id = $7`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		core.ReviewCompleted, now, review.FilesProcessed, review.CommentsGenerated,
		review.TokensConsumed, review.EstimatedCost, review.ID)
	if err != nil {
		return err
	}
	review.Status = core.ReviewCompleted
	review.CompletedAt = &now
	return nil
}

func (s *postgresReviewStore) Fail(ctx context.Context, id int64, errorMessage string) error {
	query := `UPDATE reviews SET status = $1, completed_at = $2, error_message = $3 WHERE id = $4`
	_, err := s.db.ExecContext(ctx, query, core.ReviewFailed, time.Now(), errorMessage, id)
	return err
}

func (s *postgresReviewStore) GetByID(ctx context.Context, id int64) (*core.ReviewRecord, error) {
	query := `
		SELECT id, repository_id, pull_request_number, pull_request_title, author, status,
		       started_at, completed_at, files_processed, comments_generated,
		       tokens_consumed, estimated_cost, error_message
		FROM reviews WHERE id = $1`
	var r core.ReviewRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.RepositoryID, &r.PullRequestNumber, &r.PullRequestTitle, &r.Author, &r.Status,
		&r.StartedAt, &r.CompletedAt, &r.FilesProcessed, &r.CommentsGenerated,
		&r.TokensConsumed, &r.EstimatedCost, &r.ErrorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// AppendFileOutcome records one processed file. Comments are stored as JSONB
// so the trail keeps the exact published findings.
func (s *postgresReviewStore) AppendFileOutcome(ctx context.Context, outcome *core.FileReviewOutcome) error {
	comments, err := json.Marshal(outcome.Comments)
	if err != nil {
		return fmt.Errorf("failed to encode file comments: %w", err)
	}
	query := `
		INSERT INTO review_files (review_id, file_path, change_type, lines_added, lines_deleted,
		                          matched_keywords, comments, tokens_consumed, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		outcome.ReviewID, outcome.FilePath, outcome.ChangeType, outcome.LinesAdded, outcome.LinesDeleted,
		pq.Array(outcome.MatchedKeywords), comments, outcome.TokensConsumed, now,
	).Scan(&outcome.ID)
	if err != nil {
		return fmt.Errorf("failed to record file outcome for %s: %w", outcome.FilePath, err)
	}
	outcome.ProcessedAt = now
	return nil
}
