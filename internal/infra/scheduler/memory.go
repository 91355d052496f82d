package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// MemoryStore is an in-process Store for tests and single-node development
// runs. Same semantics as the Redis store, minus durability.
type MemoryStore struct {
	mu      sync.Mutex
	jobs    map[string]domain.AnalysisJob
	readyAt map[string]time.Time
	locks   map[string]time.Time // lock expiry per job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]domain.AnalysisJob),
		readyAt: make(map[string]time.Time),
		locks:   make(map[string]time.Time),
	}
}

func (s *MemoryStore) SaveJob(ctx context.Context, job domain.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (domain.AnalysisJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	return job, ok, nil
}

func (s *MemoryStore) UpdateJobState(ctx context.Context, jobID string, attemptIndex int, status domain.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.AttemptIndex = attemptIndex
	job.Status = status
	s.jobs[jobID] = job
	return nil
}

func (s *MemoryStore) Schedule(ctx context.Context, jobID string, readyAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyAt[jobID] = readyAt
	return nil
}

func (s *MemoryStore) DueJobs(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for id, ready := range s.readyAt {
		if !ready.After(now) {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return s.readyAt[due[i]].Before(s.readyAt[due[j]])
	})
	if int64(len(due)) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) Dequeue(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readyAt, jobID)
	return nil
}

func (s *MemoryStore) QueueDepth(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.readyAt)), nil
}

func (s *MemoryStore) AcquireAttemptLock(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiry, held := s.locks[jobID]; held && time.Now().Before(expiry) {
		return false, nil
	}
	s.locks[jobID] = time.Now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) ReleaseAttemptLock(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, jobID)
	return nil
}
