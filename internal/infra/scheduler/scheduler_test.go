package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minhvu/snapcal/internal/analysis/orchestrator"
	"github.com/minhvu/snapcal/internal/core/domain"
)

// scriptedHandler returns one outcome per invocation.
type scriptedHandler struct {
	mu       sync.Mutex
	outcomes []orchestrator.Outcome
	calls    []domain.AnalysisJob
}

func (h *scriptedHandler) HandleAttempt(ctx context.Context, job domain.AnalysisJob) orchestrator.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, job)
	if len(h.outcomes) == 0 {
		return orchestrator.Outcome{Status: domain.JobStatusSucceeded, AttemptIndex: job.AttemptIndex}
	}
	out := h.outcomes[0]
	h.outcomes = h.outcomes[1:]
	return out
}

func newTestScheduler(handler AttemptHandler) (*Scheduler, *MemoryStore, *time.Time) {
	store := NewMemoryStore()
	s := New(store, handler, Config{})
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, store, &clock
}

func enqueueArtifact(t *testing.T, s *Scheduler) string {
	t.Helper()
	jobID, err := s.Enqueue(context.Background(), domain.CapturedArtifact{
		ID:        "artifact-1",
		Location:  "/tmp/artifact-1.jpg",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return jobID
}

func TestEnqueue_DuplicateRejected(t *testing.T) {
	s, _, _ := newTestScheduler(&scriptedHandler{})
	enqueueArtifact(t, s)

	_, err := s.Enqueue(context.Background(), domain.CapturedArtifact{ID: "artifact-1", Location: "/tmp/x.jpg"})
	if !errors.Is(err, ErrJobExists) {
		t.Errorf("expected ErrJobExists, got %v", err)
	}
}

func TestRunOnce_AppliesRescheduleDelays(t *testing.T) {
	handler := &scriptedHandler{outcomes: []orchestrator.Outcome{
		{Status: domain.JobStatusRetryScheduled, AttemptIndex: 1, Delay: 1 * time.Second},
		{Status: domain.JobStatusRetryScheduled, AttemptIndex: 2, Delay: 2 * time.Second},
		{Status: domain.JobStatusRetryScheduled, AttemptIndex: 3, Delay: 4 * time.Second},
		{Status: domain.JobStatusSucceeded, AttemptIndex: 3},
	}}
	s, store, clock := newTestScheduler(handler)
	jobID := enqueueArtifact(t, s)

	ctx := context.Background()
	var gaps []time.Duration

	// Attempt 0 is due immediately.
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		// Nothing due before the backoff elapses.
		*clock = clock.Add(500 * time.Millisecond)
		if err := s.RunOnce(ctx); err != nil {
			t.Fatal(err)
		}
		if len(handler.calls) != attempt {
			t.Fatalf("attempt %d released early: %d calls", attempt, len(handler.calls))
		}

		ready := store.readyAt[jobID]
		gaps = append(gaps, ready.Sub(clock.Add(-500*time.Millisecond)))

		*clock = ready
		if err := s.RunOnce(ctx); err != nil {
			t.Fatal(err)
		}
		if len(handler.calls) != attempt+1 {
			t.Fatalf("attempt %d not released at its due time", attempt)
		}
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	for i := range want {
		if gaps[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, gaps[i], want[i])
		}
	}

	// Success dequeues the job.
	if depth, _ := store.QueueDepth(ctx); depth != 0 {
		t.Errorf("queue depth = %d after terminal success", depth)
	}
	status, err := s.Status(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if status != domain.JobStatusSucceeded {
		t.Errorf("status = %v", status)
	}
}

func TestRunOnce_SequentialAttemptIndexes(t *testing.T) {
	handler := &scriptedHandler{outcomes: []orchestrator.Outcome{
		{Status: domain.JobStatusRetryScheduled, AttemptIndex: 1, Delay: time.Second},
		{Status: domain.JobStatusRetryScheduled, AttemptIndex: 2, Delay: 2 * time.Second},
		{Status: domain.JobStatusFailedExhausted, AttemptIndex: 2},
	}}
	s, _, clock := newTestScheduler(handler)
	enqueueArtifact(t, s)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.RunOnce(ctx); err != nil {
			t.Fatal(err)
		}
		*clock = clock.Add(10 * time.Second)
	}

	if len(handler.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(handler.calls))
	}
	for i, job := range handler.calls {
		if job.AttemptIndex != i {
			t.Errorf("call %d saw attempt index %d", i, job.AttemptIndex)
		}
	}
}

func TestManualRetry_ResetsExhaustedJob(t *testing.T) {
	handler := &scriptedHandler{outcomes: []orchestrator.Outcome{
		{Status: domain.JobStatusFailedExhausted, AttemptIndex: 3},
		{Status: domain.JobStatusSucceeded, AttemptIndex: 0},
	}}
	s, _, clock := newTestScheduler(handler)
	jobID := enqueueArtifact(t, s)

	ctx := context.Background()
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	status, _ := s.Status(ctx, jobID)
	if status != domain.JobStatusFailedExhausted {
		t.Fatalf("status = %v, want exhausted", status)
	}

	if err := s.Retry(ctx, jobID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	idx, err := s.CurrentAttemptIndex(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("attempt index after manual retry = %d, want 0", idx)
	}
	status, _ = s.Status(ctx, jobID)
	if status != domain.JobStatusQueued {
		t.Errorf("status after manual retry = %v, want queued", status)
	}

	*clock = clock.Add(time.Second)
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	status, _ = s.Status(ctx, jobID)
	if status != domain.JobStatusSucceeded {
		t.Errorf("status = %v, want succeeded", status)
	}

	// The re-run attempt started from index 0.
	if got := handler.calls[len(handler.calls)-1].AttemptIndex; got != 0 {
		t.Errorf("re-run attempt index = %d, want 0", got)
	}
}

func TestManualRetry_RejectedForOtherStates(t *testing.T) {
	handler := &scriptedHandler{outcomes: []orchestrator.Outcome{
		{Status: domain.JobStatusFailedNonRetryable, AttemptIndex: 0},
	}}
	s, _, _ := newTestScheduler(handler)
	jobID := enqueueArtifact(t, s)

	ctx := context.Background()
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.Retry(ctx, jobID); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("expected ErrNotRetryable, got %v", err)
	}
	if err := s.Retry(ctx, "unknown"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRunOnce_LockedJobSkipped(t *testing.T) {
	handler := &scriptedHandler{}
	s, store, _ := newTestScheduler(handler)
	jobID := enqueueArtifact(t, s)

	ctx := context.Background()
	locked, err := store.AcquireAttemptLock(ctx, jobID, time.Minute)
	if err != nil || !locked {
		t.Fatalf("setup lock failed: %v %v", locked, err)
	}

	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if len(handler.calls) != 0 {
		t.Error("locked job must not be released")
	}

	if err := store.ReleaseAttemptLock(ctx, jobID); err != nil {
		t.Fatal(err)
	}
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if len(handler.calls) != 1 {
		t.Errorf("calls after unlock = %d, want 1", len(handler.calls))
	}
}

func TestEnqueue_AllowedAfterTerminal(t *testing.T) {
	handler := &scriptedHandler{outcomes: []orchestrator.Outcome{
		{Status: domain.JobStatusSucceeded, AttemptIndex: 0},
	}}
	s, _, _ := newTestScheduler(handler)
	enqueueArtifact(t, s)

	ctx := context.Background()
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	// A new capture may reuse the id once the previous job is terminal.
	if _, err := s.Enqueue(ctx, domain.CapturedArtifact{ID: "artifact-1", Location: "/tmp/new.jpg"}); err != nil {
		t.Errorf("enqueue after terminal failed: %v", err)
	}
}

func TestEnqueue_SupersedesExhaustedJob(t *testing.T) {
	s, store, _ := newTestScheduler(&scriptedHandler{})
	ctx := context.Background()

	// Previous run ended exhausted with its photo retained for manual retry.
	if err := store.SaveJob(ctx, domain.AnalysisJob{
		ID:               "artifact-1",
		ArtifactLocation: "/tmp/retained.jpg",
		AttemptIndex:     3,
		Status:           domain.JobStatusFailedExhausted,
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Enqueue(ctx, domain.CapturedArtifact{ID: "artifact-1", Location: "/tmp/new.jpg"}); err != nil {
		t.Fatalf("enqueue over exhausted job failed: %v", err)
	}

	// The durable record now belongs to the new capture from attempt 0.
	job, found, err := store.GetJob(ctx, "artifact-1")
	if err != nil || !found {
		t.Fatalf("job not found after supersede: %v", err)
	}
	if job.ArtifactLocation != "/tmp/new.jpg" {
		t.Errorf("expected new artifact location, got %s", job.ArtifactLocation)
	}
	if job.AttemptIndex != 0 || job.Status != domain.JobStatusQueued {
		t.Errorf("expected fresh queued job, got attempt=%d status=%s", job.AttemptIndex, job.Status)
	}

	// The superseded run's manual-retry path is gone with it.
	if err := s.Retry(ctx, "artifact-1"); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("expected ErrNotRetryable for superseded job, got %v", err)
	}
}
