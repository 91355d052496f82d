package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/minhvu/snapcal/internal/analysis/metrics"
	"github.com/minhvu/snapcal/internal/analysis/orchestrator"
	"github.com/minhvu/snapcal/internal/core/domain"
)

var (
	// ErrJobExists is returned when an artifact already has a live job.
	ErrJobExists = errors.New("job already exists for artifact")

	// ErrJobNotFound is returned for operations on unknown jobs.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotRetryable is returned when a manual retry targets a job that is
	// not in the retry-exhausted state.
	ErrNotRetryable = errors.New("job is not in a manually retryable state")
)

// Store is the durable substrate the scheduler runs on. It persists the
// job record and the due-time queue across process restarts.
type Store interface {
	SaveJob(ctx context.Context, job domain.AnalysisJob) error
	GetJob(ctx context.Context, jobID string) (domain.AnalysisJob, bool, error)
	UpdateJobState(ctx context.Context, jobID string, attemptIndex int, status domain.JobStatus) error
	Schedule(ctx context.Context, jobID string, readyAt time.Time) error
	DueJobs(ctx context.Context, now time.Time, limit int64) ([]string, error)
	Dequeue(ctx context.Context, jobID string) error
	QueueDepth(ctx context.Context) (int64, error)
	AcquireAttemptLock(ctx context.Context, jobID string, ttl time.Duration) (bool, error)
	ReleaseAttemptLock(ctx context.Context, jobID string) error
}

// AttemptHandler executes one attempt and returns the decision to apply.
type AttemptHandler interface {
	HandleAttempt(ctx context.Context, job domain.AnalysisJob) orchestrator.Outcome
}

// Config holds scheduler tuning.
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
	BatchSize    int64         `yaml:"batch_size"`
}

// Scheduler releases due attempts exactly once each, invokes the handler,
// and durably records the decision before the next attempt can begin.
type Scheduler struct {
	store   Store
	handler AttemptHandler
	cfg     Config
	now     func() time.Time
	log     *slog.Logger
}

// New creates a scheduler over the given store.
func New(store Store, handler AttemptHandler, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Scheduler{
		store:   store,
		handler: handler,
		cfg:     cfg,
		now:     time.Now,
		log:     slog.Default(),
	}
}

// Enqueue creates the durable job for a captured artifact and releases the
// first attempt immediately. The job id equals the artifact id, so a second
// enqueue for a live artifact fails.
func (s *Scheduler) Enqueue(ctx context.Context, artifact domain.CapturedArtifact) (string, error) {
	jobID := artifact.ID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	existing, found, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to check existing job: %w", err)
	}
	if found && !existing.Status.Terminal() {
		return "", ErrJobExists
	}
	if found && existing.Status == domain.JobStatusFailedExhausted {
		// The previous run retained its photo for a manual retry; replacing
		// the record forfeits that path, so leave a trace of the artifact.
		s.log.Warn("Superseding exhausted job, retained artifact orphaned",
			"job", jobID, "orphaned_location", existing.ArtifactLocation)
	}

	job := domain.AnalysisJob{
		ID:               jobID,
		ArtifactLocation: artifact.Location,
		CapturedAt:       artifact.CreatedAt,
		AttemptIndex:     0,
		Status:           domain.JobStatusQueued,
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to save job: %w", err)
	}
	if err := s.store.Schedule(ctx, jobID, s.now()); err != nil {
		return "", fmt.Errorf("failed to schedule job: %w", err)
	}

	s.log.Info("Job enqueued", "job", jobID)
	return jobID, nil
}

// Retry resets an exhausted job to attempt 0 and re-releases it, reusing
// the retained artifact. Only valid from the retry-exhausted state.
func (s *Scheduler) Retry(ctx context.Context, jobID string) error {
	job, found, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if !found {
		return ErrJobNotFound
	}
	if job.Status != domain.JobStatusFailedExhausted {
		return ErrNotRetryable
	}

	if err := s.store.UpdateJobState(ctx, jobID, 0, domain.JobStatusQueued); err != nil {
		return fmt.Errorf("failed to reset job: %w", err)
	}
	if err := s.store.Schedule(ctx, jobID, s.now()); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.log.Info("Manual retry triggered", "job", jobID)
	return nil
}

// CurrentAttemptIndex returns the durable attempt index for a job.
func (s *Scheduler) CurrentAttemptIndex(ctx context.Context, jobID string) (int, error) {
	job, found, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to load job: %w", err)
	}
	if !found {
		return 0, ErrJobNotFound
	}
	return job.AttemptIndex, nil
}

// Status returns the durable status for a job.
func (s *Scheduler) Status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	job, found, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to load job: %w", err)
	}
	if !found {
		return "", ErrJobNotFound
	}
	return job.Status, nil
}

// Run polls for due attempts until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("Scheduler iteration failed", "error", err)
			}
		}
	}
}

// RunOnce releases every currently-due attempt once.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.now()

	if depth, err := s.store.QueueDepth(ctx); err == nil {
		metrics.QueueDepth.Set(float64(depth))
	}

	ids, err := s.store.DueJobs(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due jobs: %w", err)
	}

	for _, jobID := range ids {
		if err := s.runAttempt(ctx, jobID, now); err != nil {
			s.log.Error("Attempt failed to run", "job", jobID, "error", err)
		}
	}
	return nil
}

// runAttempt releases one due attempt under the per-job lock. The decision
// is durably recorded before the lock is released, so attempt k+1 can never
// begin before attempt k is fully resolved.
func (s *Scheduler) runAttempt(ctx context.Context, jobID string, now time.Time) error {
	locked, err := s.store.AcquireAttemptLock(ctx, jobID, s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil // attempt already running elsewhere
	}
	defer func() {
		if err := s.store.ReleaseAttemptLock(ctx, jobID); err != nil {
			s.log.Warn("Failed to release attempt lock", "job", jobID, "error", err)
		}
	}()

	job, found, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if !found || job.Status.Terminal() {
		// Stale queue entry; nothing left to run.
		return s.store.Dequeue(ctx, jobID)
	}

	if err := s.store.UpdateJobState(ctx, jobID, job.AttemptIndex, domain.JobStatusRunning); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	outcome := s.handler.HandleAttempt(ctx, job)

	if outcome.Status == domain.JobStatusRetryScheduled {
		if err := s.store.UpdateJobState(ctx, jobID, outcome.AttemptIndex, domain.JobStatusRetryScheduled); err != nil {
			return fmt.Errorf("failed to record reschedule: %w", err)
		}
		if err := s.store.Schedule(ctx, jobID, now.Add(outcome.Delay)); err != nil {
			return fmt.Errorf("failed to schedule next attempt: %w", err)
		}
		return nil
	}

	if err := s.store.UpdateJobState(ctx, jobID, outcome.AttemptIndex, outcome.Status); err != nil {
		return fmt.Errorf("failed to record terminal state: %w", err)
	}
	return s.store.Dequeue(ctx, jobID)
}
