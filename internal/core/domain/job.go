package domain

import "time"

// MaxAttempts is the fixed attempt budget per job. After the fourth
// attempt a job is always terminal.
const MaxAttempts = 4

// BaseDelay is the backoff unit between attempts.
const BaseDelay = 1 * time.Second

// AnalysisJob represents one durable unit of analysis work, tied 1:1 to a
// captured photo. The job id equals the artifact id, which enforces
// at-most-one job per artifact.
type AnalysisJob struct {
	ID               string    `json:"id"`
	ArtifactLocation string    `json:"artifact_location"`
	CapturedAt       time.Time `json:"captured_at"`
	AttemptIndex     int       `json:"attempt_index"`
	Status           JobStatus `json:"status"`
}

type JobStatus string

const (
	JobStatusQueued             JobStatus = "queued"
	JobStatusRunning            JobStatus = "running"
	JobStatusRetryScheduled     JobStatus = "retry_scheduled"
	JobStatusSucceeded          JobStatus = "succeeded"
	JobStatusFailedExhausted    JobStatus = "failed_retry_exhausted"
	JobStatusFailedNonRetryable JobStatus = "failed_non_retryable"
)

// Terminal reports whether no further attempts will occur for this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailedExhausted, JobStatusFailedNonRetryable:
		return true
	}
	return false
}

// DelayForAttempt returns the scheduler-enforced delay before attempt k
// (zero-indexed): 0s, 1s, 2s, 4s. Attempt 0 is immediate.
func DelayForAttempt(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return BaseDelay << (attempt - 1)
}
