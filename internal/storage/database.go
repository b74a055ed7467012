// Package storage persists the history of migration check runs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/migration-warden/internal/core"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("check run not found")

// Store defines the interface for all database operations.
type Store interface {
	SaveCheckRun(ctx context.Context, run *core.CheckRun) error
	ListCheckRuns(ctx context.Context, limit int) ([]*core.CheckRun, error)
	LatestCheckRun(ctx context.Context, repoFullName string, prNumber int) (*core.CheckRun, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveCheckRun inserts a finished run and fills in its ID and timestamp.
func (s *postgresStore) SaveCheckRun(ctx context.Context, run *core.CheckRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO check_runs (repo_full_name, pr_number, head_sha, outcome, run_hash, migration_count, error, created_at)
		VALUES (:repo_full_name, :pr_number, :head_sha, :outcome, :run_hash, :migration_count, :error, :created_at)
		RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("failed to insert check run: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return fmt.Errorf("failed to read check run id: %w", err)
		}
	}
	return rows.Err()
}

// ListCheckRuns returns the most recent runs across all repositories.
func (s *postgresStore) ListCheckRuns(ctx context.Context, limit int) ([]*core.CheckRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, outcome, run_hash, migration_count, error, created_at
		FROM check_runs
		ORDER BY created_at DESC
		LIMIT $1`

	var runs []*core.CheckRun
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list check runs: %w", err)
	}
	return runs, nil
}

// LatestCheckRun retrieves the most recent run for a given pull request.
func (s *postgresStore) LatestCheckRun(ctx context.Context, repoFullName string, prNumber int) (*core.CheckRun, error) {
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, outcome, run_hash, migration_count, error, created_at
		FROM check_runs
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var r core.CheckRun
	if err := s.db.GetContext(ctx, &r, query, repoFullName, prNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for PR %s#%d", ErrNotFound, repoFullName, prNumber)
		}
		return nil, err
	}
	return &r, nil
}
