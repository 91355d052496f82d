package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// FailedJobRepo implements storage.FailedJobRepository using PostgreSQL.
type FailedJobRepo struct {
	db *DB
}

// NewFailedJobRepo creates a new PostgreSQL failed job repository.
func NewFailedJobRepo(db *DB) *FailedJobRepo {
	return &FailedJobRepo{db: db}
}

// Record appends a failure audit row.
func (r *FailedJobRepo) Record(ctx context.Context, fj *domain.FailedJob) error {
	query := `
		INSERT INTO failed_jobs (id, job_id, kind, cause, attempt_index, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		fj.ID, fj.JobID, string(fj.Kind), fj.Cause, fj.AttemptIndex, string(fj.Status))
	if err != nil {
		return fmt.Errorf("failed to record failed job: %w", err)
	}
	return nil
}

// ListRecent returns the most recent failures, newest first.
func (r *FailedJobRepo) ListRecent(ctx context.Context, limit int) ([]*domain.FailedJob, error) {
	query := `
		SELECT id, job_id, kind, cause, attempt_index, status, created_at
		FROM failed_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`

	var rows []*domain.FailedJob
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", err)
	}
	return rows, nil
}

// DeleteOlderThan removes audit rows recorded before the cutoff.
func (r *FailedJobRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM failed_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune failed jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
