package classify

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"syscall"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// retryable is the fixed retryability table over the closed kind set.
// Rate limiting stays non-retryable: the upstream product behavior treats it
// as a user-facing condition, not a transient one.
var retryable = map[domain.ErrorKind]bool{
	domain.KindNetwork:            true,
	domain.KindServiceUnavailable: true,
	domain.KindAuth:               false,
	domain.KindRateLimited:        false,
	domain.KindMalformedResponse:  false,
	domain.KindValidation:         false,
	domain.KindPermissionDenied:   false,
	domain.KindUnknown:            false,
}

// Classify maps a raw attempt failure to its kind. Pure and deterministic:
// the same error value always yields the same kind. Recognized categories
// are matched explicitly; everything else falls back to KindUnknown.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.KindUnknown
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return domain.KindValidation
	}

	var malformedErr *domain.MalformedResponseError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &malformedErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.KindMalformedResponse
	}

	var permErr *domain.PermissionError
	if errors.As(err, &permErr) || errors.Is(err, fs.ErrPermission) {
		return domain.KindPermissionDenied
	}

	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	if isNetworkFailure(err) {
		return domain.KindNetwork
	}

	return domain.KindUnknown
}

// IsRetryable is a total lookup over the closed kind set. Unrecognized kinds
// are treated as non-retryable.
func IsRetryable(kind domain.ErrorKind) bool {
	return retryable[kind]
}

func classifyStatus(code int) domain.ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.KindAuth
	case code == http.StatusTooManyRequests:
		return domain.KindRateLimited
	case code == http.StatusRequestTimeout:
		return domain.KindNetwork
	case code >= 500:
		return domain.KindServiceUnavailable
	default:
		return domain.KindUnknown
	}
}

func isNetworkFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
