package domain

import "time"

// FailedJob is the audit record written when a job reaches a terminal
// failure state. Operational only; the pipeline never reads it back.
type FailedJob struct {
	ID           string    `json:"id" db:"id"`
	JobID        string    `json:"job_id" db:"job_id"`
	Kind         ErrorKind `json:"kind" db:"kind"`
	Cause        string    `json:"cause" db:"cause"`
	AttemptIndex int       `json:"attempt_index" db:"attempt_index"`
	Status       JobStatus `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
