package domain

import "time"

// CapturedArtifact is the temporary photo handed over by the capture flow.
// Ownership transfers to the photo lifecycle manager when the job is
// enqueued; only that component may delete it.
type CapturedArtifact struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}
