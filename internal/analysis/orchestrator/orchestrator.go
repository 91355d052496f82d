package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/minhvu/snapcal/internal/analysis/classify"
	"github.com/minhvu/snapcal/internal/analysis/metrics"
	"github.com/minhvu/snapcal/internal/core/domain"
)

// AnalysisService is the external vision service. Single request/response,
// caller-supplied timeout via ctx. All retry is owned by the orchestrator.
type AnalysisService interface {
	Analyze(ctx context.Context, artifactID string, photo []byte) (*domain.Estimate, error)
}

// ResultStore persists a finished estimate. Single atomic write.
type ResultStore interface {
	Save(ctx context.Context, estimate *domain.Estimate, occurredAt time.Time) error
}

// ConnectivityChecker reports cached network reachability.
type ConnectivityChecker interface {
	IsConnected() bool
}

// Photos is the artifact lifecycle surface the orchestrator drives.
type Photos interface {
	Open(ctx context.Context, location string) ([]byte, error)
	DeleteOnTerminalSuccess(ctx context.Context, artifactID, location string) error
	DeleteOnNonRetryableFailure(ctx context.Context, artifactID, location string) error
	KeepForManualRetry(ctx context.Context, artifactID, location string)
}

// Notifier renders the per-job notification slot.
type Notifier interface {
	PostProgress(ctx context.Context, jobID string, attemptIndex, maxAttempts int)
	PostTerminalFailure(ctx context.Context, jobID string, content domain.NotificationContent, allowManualRetry bool)
	Clear(ctx context.Context, jobID string)
}

// FailureAudit records terminal failures for operations. Optional.
type FailureAudit interface {
	Record(ctx context.Context, job domain.AnalysisJob, kind domain.ErrorKind, cause string) error
}

// Outcome is the orchestrator's decision for one attempt. The durable
// scheduler applies it: reschedule with Delay, or finalize with Status.
type Outcome struct {
	Status       domain.JobStatus
	AttemptIndex int
	Delay        time.Duration
}

// errOffline is the synthetic cause used when the last attempt is released
// while the device is offline.
var errOffline = errors.New("device offline")

// Orchestrator runs one attempt of the analyze-and-classify state machine.
// It holds no per-job state: everything durable lives in the scheduler's
// record, so re-entry at an already-attempted index is safe.
type Orchestrator struct {
	connectivity ConnectivityChecker
	service      AnalysisService
	results      ResultStore
	photos       Photos
	notifier     Notifier
	audit        FailureAudit
	log          *slog.Logger
}

// New creates an orchestrator. audit may be nil.
func New(
	connectivity ConnectivityChecker,
	service AnalysisService,
	results ResultStore,
	photos Photos,
	notifier Notifier,
	audit FailureAudit,
) *Orchestrator {
	return &Orchestrator{
		connectivity: connectivity,
		service:      service,
		results:      results,
		photos:       photos,
		notifier:     notifier,
		audit:        audit,
		log:          slog.Default(),
	}
}

// HandleAttempt executes attempt job.AttemptIndex and returns the decision.
// Exactly one of the three artifact terminal operations runs per job, and
// only on a terminal decision.
func (o *Orchestrator) HandleAttempt(ctx context.Context, job domain.AnalysisJob) Outcome {
	log := o.log.With("job", job.ID, "attempt", job.AttemptIndex)

	// Entry: cheap cached connectivity check before touching the network.
	if !o.connectivity.IsConnected() {
		if job.AttemptIndex < domain.MaxAttempts-1 {
			// Wait for the next attempt window without consuming budget.
			delay := domain.DelayForAttempt(job.AttemptIndex + 1)
			log.Info("Offline, rescheduling without invoking service", "delay", delay)
			o.notifier.PostProgress(ctx, job.ID, job.AttemptIndex, domain.MaxAttempts)
			metrics.AttemptsTotal.WithLabelValues("offline_reschedule").Inc()
			return Outcome{
				Status:       domain.JobStatusRetryScheduled,
				AttemptIndex: job.AttemptIndex,
				Delay:        delay,
			}
		}
		log.Warn("Offline on final attempt, treating as retry exhaustion")
		return o.finalizeFailure(ctx, job, domain.KindNetwork, errOffline)
	}

	photoBytes, err := o.photos.Open(ctx, job.ArtifactLocation)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			// The photo disappeared under us; no retry can bring it back.
			log.Warn("Artifact missing, failing non-retryably")
		}
		return o.classifyAndDecide(ctx, job, err)
	}

	start := time.Now()
	estimate, err := o.service.Analyze(ctx, job.ID, photoBytes)
	metrics.ServiceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return o.classifyAndDecide(ctx, job, err)
	}

	// Persistence failures run through the same classification path as
	// service failures.
	if err := o.results.Save(ctx, estimate, job.CapturedAt); err != nil {
		log.Error("Failed to persist estimate", "error", err)
		return o.classifyAndDecide(ctx, job, err)
	}

	if err := o.photos.DeleteOnTerminalSuccess(ctx, job.ID, job.ArtifactLocation); err != nil {
		// The estimate is already durable; losing the cleanup is not worth
		// re-running the attempt.
		log.Warn("Failed to delete artifact after success", "error", err)
	}
	o.notifier.Clear(ctx, job.ID)

	log.Info("Analysis succeeded", "calories", estimate.Calories)
	metrics.AttemptsTotal.WithLabelValues("success").Inc()
	metrics.JobsTerminal.WithLabelValues(string(domain.JobStatusSucceeded)).Inc()
	return Outcome{Status: domain.JobStatusSucceeded, AttemptIndex: job.AttemptIndex}
}

func (o *Orchestrator) classifyAndDecide(ctx context.Context, job domain.AnalysisJob, cause error) Outcome {
	kind := classify.Classify(cause)
	metrics.ClassificationsTotal.WithLabelValues(string(kind)).Inc()

	if classify.IsRetryable(kind) && job.AttemptIndex < domain.MaxAttempts-1 {
		next := job.AttemptIndex + 1
		delay := domain.DelayForAttempt(next)
		o.log.Info("Retryable failure, scheduling next attempt",
			"job", job.ID, "kind", kind, "next_attempt", next, "delay", delay, "error", cause)
		o.notifier.PostProgress(ctx, job.ID, next, domain.MaxAttempts)
		metrics.AttemptsTotal.WithLabelValues("reschedule").Inc()
		return Outcome{
			Status:       domain.JobStatusRetryScheduled,
			AttemptIndex: next,
			Delay:        delay,
		}
	}

	return o.finalizeFailure(ctx, job, kind, cause)
}

// finalizeFailure ends the job. Retryable kinds reaching here are exhausted
// (artifact retained, manual retry offered); non-retryable kinds delete the
// artifact and offer no action.
func (o *Orchestrator) finalizeFailure(
	ctx context.Context,
	job domain.AnalysisJob,
	kind domain.ErrorKind,
	cause error,
) Outcome {
	content := classify.Content(kind, cause)

	var status domain.JobStatus
	if classify.IsRetryable(kind) {
		status = domain.JobStatusFailedExhausted
		o.photos.KeepForManualRetry(ctx, job.ID, job.ArtifactLocation)
		o.notifier.PostTerminalFailure(ctx, job.ID, content, true)
	} else {
		status = domain.JobStatusFailedNonRetryable
		if err := o.photos.DeleteOnNonRetryableFailure(ctx, job.ID, job.ArtifactLocation); err != nil {
			o.log.Warn("Failed to delete artifact after terminal failure", "job", job.ID, "error", err)
		}
		o.notifier.PostTerminalFailure(ctx, job.ID, content, false)
	}

	o.log.Warn("Job finished with failure",
		"job", job.ID, "status", status, "kind", kind, "error", cause)
	metrics.AttemptsTotal.WithLabelValues("terminal_failure").Inc()
	metrics.JobsTerminal.WithLabelValues(string(status)).Inc()

	if o.audit != nil {
		job.Status = status
		if err := o.audit.Record(ctx, job, kind, cause.Error()); err != nil {
			o.log.Warn("Failed to record failure audit", "job", job.ID, "error", err)
		}
	}

	return Outcome{Status: status, AttemptIndex: job.AttemptIndex}
}
