package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed failure taxonomy every raw failure is classified
// into. Retryability is a fixed property of the kind, never of the
// individual error.
type ErrorKind string

const (
	KindNetwork            ErrorKind = "network"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindAuth               ErrorKind = "auth"
	KindRateLimited        ErrorKind = "rate_limited"
	KindMalformedResponse  ErrorKind = "malformed_response"
	KindValidation         ErrorKind = "validation"
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindUnknown            ErrorKind = "unknown"
)

// ErrArtifactMissing is returned when the photo backing a job disappeared
// before a terminal decision was made.
var ErrArtifactMissing = errors.New("captured artifact no longer exists")

// HTTPStatusError carries a status code from the analysis service so the
// classifier can match on it without inspecting transport internals.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analysis service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis service returned status %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError indicates the service responded but the body could
// not be decoded into an estimate.
type MalformedResponseError struct {
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed analysis response: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// ValidationError indicates the decoded estimate is outside the acceptable
// range. Detail is safe to show to the user.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("estimate rejected: %s", e.Detail)
}

// PermissionError indicates a missing local permission (storage access,
// camera roll) rather than a remote auth failure.
type PermissionError struct {
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission missing for %s", e.Resource)
}
