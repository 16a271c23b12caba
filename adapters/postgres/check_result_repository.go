package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// CheckResultRepositoryImpl implements CheckResultRepository for PostgreSQL
type CheckResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewCheckResultRepository creates a new PostgreSQL check result repository
func NewCheckResultRepository(db *sqlx.DB) ports.CheckResultRepository {
	return &CheckResultRepositoryImpl{db: db}
}

// Create saves a check result; per-property outcomes are stored as JSONB
func (r *CheckResultRepositoryImpl) Create(ctx context.Context, result *tabular.CheckResult) error {
	resultsJSON, err := json.Marshal(result.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal check results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO check_results (id, check_name, dataset_name, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			check_name = EXCLUDED.check_name,
			dataset_name = EXCLUDED.dataset_name,
			results = EXCLUDED.results`,
		result.ID.String(), result.Check, result.Dataset, resultsJSON, result.CreatedAt.Time())

	return err
}

// GetByID retrieves a check result by ID
func (r *CheckResultRepositoryImpl) GetByID(ctx context.Context, id core.ResultID) (*tabular.CheckResult, error) {
	var result tabular.CheckResult
	var rawID string
	var resultsJSON []byte
	var createdAt time.Time

	err := r.db.QueryRowContext(ctx, `
		SELECT id, check_name, dataset_name, results, created_at
		FROM check_results
		WHERE id = $1
	`, id.String()).Scan(&rawID, &result.Check, &result.Dataset, &resultsJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("check result %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	parsed, err := core.ParseResultID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored check result has invalid id: %w", err)
	}
	result.ID = parsed
	result.CreatedAt = core.NewTimestamp(createdAt)

	if err := json.Unmarshal(resultsJSON, &result.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal check results: %w", err)
	}

	return &result, nil
}

// ListRecent returns the most recent check results, optionally limited
func (r *CheckResultRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*tabular.CheckResult, error) {
	query := `
		SELECT id, check_name, dataset_name, results, created_at
		FROM check_results
		ORDER BY created_at DESC
	`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*tabular.CheckResult
	for rows.Next() {
		var result tabular.CheckResult
		var rawID string
		var resultsJSON []byte
		var createdAt time.Time

		if err := rows.Scan(&rawID, &result.Check, &result.Dataset, &resultsJSON, &createdAt); err != nil {
			return nil, err
		}

		parsed, err := core.ParseResultID(rawID)
		if err != nil {
			return nil, fmt.Errorf("stored check result has invalid id: %w", err)
		}
		result.ID = parsed
		result.CreatedAt = core.NewTimestamp(createdAt)

		if err := json.Unmarshal(resultsJSON, &result.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal check results: %w", err)
		}

		results = append(results, &result)
	}

	return results, rows.Err()
}
