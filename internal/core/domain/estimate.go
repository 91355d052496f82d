package domain

import "time"

// Calorie bounds accepted from the analysis service. Values outside this
// range are rejected as a validation failure rather than persisted.
const (
	MinCalories = 0
	MaxCalories = 5000
)

// Estimate is the structured result returned by the analysis service for
// one meal photo.
type Estimate struct {
	ID          string    `json:"id"`
	ArtifactID  string    `json:"artifact_id"`
	Description string    `json:"description"`
	Calories    int       `json:"calories"`
	Confidence  float64   `json:"confidence"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}
