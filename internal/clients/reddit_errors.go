package clients

import (
	"errors"
	"fmt"
	"time"
)

type ErrorKind string

const (
	KindAuthFailure         ErrorKind = "auth_failure"
	KindRateLimited         ErrorKind = "rate_limited"
	KindUpstreamRateLimited ErrorKind = "upstream_rate_limited"
	KindUpstreamError       ErrorKind = "upstream_error"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindSubmissionRejected  ErrorKind = "submission_rejected"
	KindNetworkError        ErrorKind = "network_error"
	KindInternalError       ErrorKind = "internal_error"
)

// RedditError is the only error type that leaves this package. Status is zero
// when no HTTP response was received. RetryAfter is set for the rate-limit
// kinds when a hint is known.
type RedditError struct {
	Kind       ErrorKind
	Message    string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *RedditError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("reddit %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("reddit %s: %s", e.Kind, e.Message)
}

func (e *RedditError) Unwrap() error { return e.Err }

// Retryable is true for the kinds a caller should back off and retry.
func (e *RedditError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindUpstreamRateLimited
}

func newError(kind ErrorKind, status int, cause error, format string, args ...any) *RedditError {
	return &RedditError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
		Err:     cause,
	}
}

// KindOf reports the taxonomy kind of err. Anything unclassified is internal.
func KindOf(err error) ErrorKind {
	var re *RedditError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternalError
}

func IsRateLimit(err error) bool {
	var re *RedditError
	return errors.As(err, &re) && re.Retryable()
}

// AsRedditError coerces any error into the taxonomy. Nil stays nil.
func AsRedditError(err error) *RedditError {
	if err == nil {
		return nil
	}
	var re *RedditError
	if errors.As(err, &re) {
		return re
	}
	return newError(KindInternalError, 0, err, "an unexpected error occurred")
}
