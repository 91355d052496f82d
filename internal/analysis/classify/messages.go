package classify

import (
	"errors"
	"fmt"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// userMessages never include internal identifiers, endpoints, or credentials.
var userMessages = map[domain.ErrorKind]string{
	domain.KindNetwork:            "Connection issue. Check your internet.",
	domain.KindServiceUnavailable: "Service temporarily unavailable. Will retry automatically.",
	domain.KindAuth:               "Credential invalid. Check settings.",
	domain.KindRateLimited:        "Too many requests. Please wait a moment.",
	domain.KindMalformedResponse:  "Unexpected response from analysis service.",
	domain.KindValidation:         "Result outside acceptable range.",
	domain.KindPermissionDenied:   "Required permission missing. Tap to grant access.",
	domain.KindUnknown:            "An unexpected error occurred. Please try again.",
}

var titles = map[domain.ErrorKind]string{
	domain.KindNetwork:            "Analysis paused",
	domain.KindServiceUnavailable: "Analysis paused",
	domain.KindAuth:               "Analysis failed",
	domain.KindRateLimited:        "Analysis failed",
	domain.KindMalformedResponse:  "Analysis failed",
	domain.KindValidation:         "Analysis failed",
	domain.KindPermissionDenied:   "Analysis failed",
	domain.KindUnknown:            "Analysis failed",
}

// UserMessage returns the fixed user-facing message for a kind.
func UserMessage(kind domain.ErrorKind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[domain.KindUnknown]
}

// DetailedMessage is UserMessage plus the safe detail carried by validation
// failures, when the raw error provides one.
func DetailedMessage(kind domain.ErrorKind, err error) string {
	if kind == domain.KindValidation {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Detail != "" {
			return fmt.Sprintf("Result outside acceptable range: %s.", validationErr.Detail)
		}
	}
	return UserMessage(kind)
}

// Content builds the terminal notification body for a failure kind.
// The presenter attaches the retry action where one is allowed.
func Content(kind domain.ErrorKind, err error) domain.NotificationContent {
	title, ok := titles[kind]
	if !ok {
		title = titles[domain.KindUnknown]
	}
	return domain.NotificationContent{
		Title:     title,
		Message:   DetailedMessage(kind, err),
		IsOngoing: false,
	}
}
