package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// FailureAuditor adapts a FailedJobRepository to the orchestrator's
// failure-audit port.
type FailureAuditor struct {
	repo FailedJobRepository
}

// NewFailureAuditor creates an auditor over the given repository.
func NewFailureAuditor(repo FailedJobRepository) *FailureAuditor {
	return &FailureAuditor{repo: repo}
}

// Record writes one audit row for a terminal failure.
func (a *FailureAuditor) Record(ctx context.Context, job domain.AnalysisJob, kind domain.ErrorKind, cause string) error {
	return a.repo.Record(ctx, &domain.FailedJob{
		ID:           uuid.New().String(),
		JobID:        job.ID,
		Kind:         kind,
		Cause:        cause,
		AttemptIndex: job.AttemptIndex,
		Status:       job.Status,
	})
}
