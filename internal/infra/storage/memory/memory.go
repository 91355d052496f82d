package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minhvu/snapcal/internal/core/domain"
	"github.com/minhvu/snapcal/internal/infra/storage"
)

// Storage is an in-memory backend for tests and development runs.
type Storage struct {
	mu        sync.RWMutex
	estimates map[string]*domain.Estimate // keyed by artifact id
	failed    []*domain.FailedJob
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{estimates: make(map[string]*domain.Estimate)}
}

// EstimateRepo implements storage.EstimateRepository in memory.
type EstimateRepo struct {
	store *Storage
}

func NewEstimateRepo(store *Storage) *EstimateRepo {
	return &EstimateRepo{store: store}
}

func (r *EstimateRepo) Save(ctx context.Context, e *domain.Estimate, occurredAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	saved := *e
	saved.OccurredAt = occurredAt
	saved.CreatedAt = time.Now()
	r.store.estimates[e.ArtifactID] = &saved
	return nil
}

func (r *EstimateRepo) GetByArtifact(ctx context.Context, artifactID string) (*domain.Estimate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.estimates[artifactID]
	if !ok {
		return nil, storage.ErrEstimateNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *EstimateRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Estimate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	estimates := make([]*domain.Estimate, 0, len(r.store.estimates))
	for _, e := range r.store.estimates {
		copied := *e
		estimates = append(estimates, &copied)
	}
	for i := 0; i < len(estimates); i++ {
		for j := i + 1; j < len(estimates); j++ {
			if estimates[j].CreatedAt.After(estimates[i].CreatedAt) {
				estimates[i], estimates[j] = estimates[j], estimates[i]
			}
		}
	}
	if len(estimates) > limit {
		estimates = estimates[:limit]
	}
	return estimates, nil
}

// FailedJobRepo implements storage.FailedJobRepository in memory.
type FailedJobRepo struct {
	store *Storage
}

func NewFailedJobRepo(store *Storage) *FailedJobRepo {
	return &FailedJobRepo{store: store}
}

func (r *FailedJobRepo) Record(ctx context.Context, fj *domain.FailedJob) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *fj
	copied.CreatedAt = time.Now()
	r.store.failed = append(r.store.failed, &copied)
	return nil
}

func (r *FailedJobRepo) ListRecent(ctx context.Context, limit int) ([]*domain.FailedJob, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n := len(r.store.failed)
	if limit > n {
		limit = n
	}
	result := make([]*domain.FailedJob, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		copied := *r.store.failed[i]
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FailedJobRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.failed[:0]
	var removed int64
	for _, fj := range r.store.failed {
		if fj.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, fj)
	}
	r.store.failed = kept
	return removed, nil
}
