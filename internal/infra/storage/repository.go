package storage

import (
	"context"
	"errors"
	"time"

	"github.com/minhvu/snapcal/internal/core/domain"
)

var (
	// ErrEstimateNotFound is returned when no estimate exists for an artifact.
	ErrEstimateNotFound = errors.New("estimate not found")
)

// EstimateRepository persists finished analysis results. Save is the
// single atomic write the orchestrator depends on.
type EstimateRepository interface {
	// Save writes an estimate stamped with the capture time.
	Save(ctx context.Context, estimate *domain.Estimate, occurredAt time.Time) error

	// GetByArtifact retrieves the estimate for an artifact.
	GetByArtifact(ctx context.Context, artifactID string) (*domain.Estimate, error)

	// ListRecent returns the most recent estimates, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Estimate, error)
}

// FailedJobRepository records terminal job failures for operations.
type FailedJobRepository interface {
	// Record appends a failure audit row.
	Record(ctx context.Context, fj *domain.FailedJob) error

	// ListRecent returns the most recent failures, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.FailedJob, error)

	// DeleteOlderThan removes audit rows recorded before the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
