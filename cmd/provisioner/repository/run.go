package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/models"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/pipeline"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/db"
)

// ErrRunNotFound is returned when no run exists for the given id
var ErrRunNotFound = errors.New("provision run not found")

// RunRepository handles database operations for provisioning runs
type RunRepository struct {
	db *db.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *db.DB) *RunRepository {
	return &RunRepository{db: db}
}

// InitSchema creates the provision_run table if it does not exist.
// Run as a bootstrap DB init hook.
func InitSchema(database *db.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS provision_run (
			run_id            UUID PRIMARY KEY,
			shop              TEXT NOT NULL,
			status            TEXT NOT NULL,
			company_count     INT NOT NULL,
			provisioned_count INT NOT NULL,
			partial_count     INT NOT NULL,
			failed_count      INT NOT NULL,
			outcomes          JSONB NOT NULL,
			started_at        TIMESTAMPTZ NOT NULL,
			finished_at       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_provision_run_shop ON provision_run (shop, started_at DESC);
	`

	if _, err := database.Exec(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create provision_run schema: %w", err)
	}

	return nil
}

// Create inserts a new run record
func (r *RunRepository) Create(ctx context.Context, run *models.ProvisionRun) error {
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal run outcomes: %w", err)
	}

	query := `
		INSERT INTO provision_run (
			run_id, shop, status, company_count,
			provisioned_count, partial_count, failed_count,
			outcomes, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		run.RunID,
		run.Shop,
		run.Status,
		run.CompanyCount,
		run.ProvisionedCount,
		run.PartialCount,
		run.FailedCount,
		outcomes,
		run.StartedAt,
		run.FinishedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create provision run: %w", err)
	}

	return nil
}

// GetByID retrieves a run with its full outcome report
func (r *RunRepository) GetByID(ctx context.Context, runID uuid.UUID) (*models.ProvisionRun, error) {
	query := `
		SELECT run_id, shop, status, company_count,
		       provisioned_count, partial_count, failed_count,
		       outcomes, started_at, finished_at
		FROM provision_run
		WHERE run_id = $1
	`

	run := &models.ProvisionRun{}
	var outcomes []byte

	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.RunID,
		&run.Shop,
		&run.Status,
		&run.CompanyCount,
		&run.ProvisionedCount,
		&run.PartialCount,
		&run.FailedCount,
		&outcomes,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provision run: %w", err)
	}

	if err := json.Unmarshal(outcomes, &run.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run outcomes: %w", err)
	}

	return run, nil
}

// List returns recent runs, newest first, without their outcome payloads
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.ProvisionRun, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT run_id, shop, status, company_count,
		       provisioned_count, partial_count, failed_count,
		       started_at, finished_at
		FROM provision_run
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list provision runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.ProvisionRun, 0, limit)
	for rows.Next() {
		run := &models.ProvisionRun{
			Outcomes: []pipeline.CompanyOutcome{},
		}
		if err := rows.Scan(
			&run.RunID,
			&run.Shop,
			&run.Status,
			&run.CompanyCount,
			&run.ProvisionedCount,
			&run.PartialCount,
			&run.FailedCount,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provision run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate provision runs: %w", err)
	}

	return runs, nil
}
