package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/review-relay/internal/core"
)

// RepoStore resolves and manages configured repositories and the
// platform-wide credential fallbacks.
type RepoStore interface {
	GetByRemoteID(ctx context.Context, platform core.Platform, remoteID string) (*core.Repository, error)
	GetByFullName(ctx context.Context, platform core.Platform, fullName string) (*core.Repository, error)
	Create(ctx context.Context, repo *core.Repository) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context) ([]core.Repository, error)
	GetPlatformSettings(ctx context.Context, platform core.Platform) (*core.PlatformSettings, error)
}

type postgresRepoStore struct {
	db *sqlx.DB
}

// NewRepoStore creates a Postgres-backed RepoStore.
func NewRepoStore(db *sqlx.DB) RepoStore {
	return &postgresRepoStore{db: db}
}

const repoColumns = `id, platform, remote_id, name, full_name, access_token, webhook_secret, api_base_url, active, created_at, updated_at`

func scanRepo(row *sql.Row) (*core.Repository, error) {
	var r core.Repository
	err := row.Scan(&r.ID, &r.Platform, &r.RemoteID, &r.Name, &r.FullName,
		&r.AccessToken, &r.WebhookSecret, &r.APIBaseURL, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *postgresRepoStore) GetByRemoteID(ctx context.Context, platform core.Platform, remoteID string) (*core.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE platform = $1 AND remote_id = $2`
	return scanRepo(s.db.QueryRowContext(ctx, query, platform, remoteID))
}

func (s *postgresRepoStore) GetByFullName(ctx context.Context, platform core.Platform, fullName string) (*core.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE platform = $1 AND full_name = $2`
	return scanRepo(s.db.QueryRowContext(ctx, query, platform, fullName))
}

func (s *postgresRepoStore) Create(ctx context.Context, repo *core.Repository) error {
	query := `
		INSERT INTO repositories (platform, remote_id, name, full_name, access_token, webhook_secret, api_base_url, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		repo.Platform, repo.RemoteID, repo.Name, repo.FullName,
		repo.AccessToken, repo.WebhookSecret, repo.APIBaseURL, repo.Active, now,
	).Scan(&repo.ID)
	if err != nil {
		return fmt.Errorf("failed to create repository %s: %w", repo.FullName, err)
	}
	repo.CreatedAt = now
	return nil
}

func (s *postgresRepoStore) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE repositories SET active = $1, updated_at = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresRepoStore) List(ctx context.Context) ([]core.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories ORDER BY platform, full_name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var repos []core.Repository
	for rows.Next() {
		var r core.Repository
		if err := rows.Scan(&r.ID, &r.Platform, &r.RemoteID, &r.Name, &r.FullName,
			&r.AccessToken, &r.WebhookSecret, &r.APIBaseURL, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (s *postgresRepoStore) GetPlatformSettings(ctx context.Context, platform core.Platform) (*core.PlatformSettings, error) {
	query := `SELECT id, platform, access_token, webhook_secret, api_base_url, updated_at FROM platform_settings WHERE platform = $1`
	var p core.PlatformSettings
	err := s.db.QueryRowContext(ctx, query, platform).Scan(
		&p.ID, &p.Platform, &p.AccessToken, &p.WebhookSecret, &p.APIBaseURL, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
