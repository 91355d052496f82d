package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minhvu/snapcal/internal/core/domain"
	"github.com/minhvu/snapcal/internal/infra/storage"
)

// EstimateRepo implements storage.EstimateRepository using PostgreSQL.
type EstimateRepo struct {
	db *DB
}

// NewEstimateRepo creates a new PostgreSQL estimate repository.
func NewEstimateRepo(db *DB) *EstimateRepo {
	return &EstimateRepo{db: db}
}

// Save writes an estimate. Re-running a terminal decision after process
// death must not duplicate rows, so the artifact id upserts.
func (r *EstimateRepo) Save(ctx context.Context, e *domain.Estimate, occurredAt time.Time) error {
	query := `
		INSERT INTO estimates (id, artifact_id, description, calories, confidence, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (artifact_id) DO UPDATE
		SET description = EXCLUDED.description,
		    calories    = EXCLUDED.calories,
		    confidence  = EXCLUDED.confidence,
		    occurred_at = EXCLUDED.occurred_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ArtifactID, e.Description, e.Calories, e.Confidence, occurredAt)
	if err != nil {
		return fmt.Errorf("failed to save estimate: %w", err)
	}
	return nil
}

// GetByArtifact retrieves the estimate for an artifact.
func (r *EstimateRepo) GetByArtifact(ctx context.Context, artifactID string) (*domain.Estimate, error) {
	query := `
		SELECT id, artifact_id, description, calories, confidence, occurred_at, created_at
		FROM estimates
		WHERE artifact_id = $1
	`

	var dest struct {
		ID          string    `db:"id"`
		ArtifactID  string    `db:"artifact_id"`
		Description string    `db:"description"`
		Calories    int       `db:"calories"`
		Confidence  float64   `db:"confidence"`
		OccurredAt  time.Time `db:"occurred_at"`
		CreatedAt   time.Time `db:"created_at"`
	}

	err := r.db.GetContext(ctx, &dest, query, artifactID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEstimateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get estimate: %w", err)
	}

	return &domain.Estimate{
		ID:          dest.ID,
		ArtifactID:  dest.ArtifactID,
		Description: dest.Description,
		Calories:    dest.Calories,
		Confidence:  dest.Confidence,
		OccurredAt:  dest.OccurredAt,
		CreatedAt:   dest.CreatedAt,
	}, nil
}

// ListRecent returns the most recent estimates, newest first.
func (r *EstimateRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Estimate, error) {
	query := `
		SELECT id, artifact_id, description, calories, confidence, occurred_at, created_at
		FROM estimates
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows := []struct {
		ID          string    `db:"id"`
		ArtifactID  string    `db:"artifact_id"`
		Description string    `db:"description"`
		Calories    int       `db:"calories"`
		Confidence  float64   `db:"confidence"`
		OccurredAt  time.Time `db:"occurred_at"`
		CreatedAt   time.Time `db:"created_at"`
	}{}

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}

	estimates := make([]*domain.Estimate, 0, len(rows))
	for _, row := range rows {
		estimates = append(estimates, &domain.Estimate{
			ID:          row.ID,
			ArtifactID:  row.ArtifactID,
			Description: row.Description,
			Calories:    row.Calories,
			Confidence:  row.Confidence,
			OccurredAt:  row.OccurredAt,
			CreatedAt:   row.CreatedAt,
		})
	}
	return estimates, nil
}
