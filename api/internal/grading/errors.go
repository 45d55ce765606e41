package grading

import (
	"errors"
	"fmt"
)

// Kind classifies a grading failure.
type Kind int

const (
	KindRequestFailed Kind = iota
	KindEmptyResponse
	KindSchemaParse
	KindMissingCredential
)

func (k Kind) String() string {
	switch k {
	case KindEmptyResponse:
		return "empty_response"
	case KindSchemaParse:
		return "schema_parse"
	case KindMissingCredential:
		return "missing_credential"
	default:
		return "request_failed"
	}
}

// RetryMessage is what the user sees for every grading failure.
const RetryMessage = "批改失败，请换一张更清晰的图片重试。"

// ErrNoCredential is returned by a Generator that has no API key configured.
var ErrNoCredential = errors.New("grading: API credential is missing")

// Error is the failure arm of a grading call. Grade returns either a Result
// or an *Error, never both.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "grading " + e.Kind.String()
	}
	return fmt.Sprintf("grading %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage collapses every kind into one retryable prompt.
func (e *Error) UserMessage() string { return RetryMessage }

// KindOf reports the Kind of err, or false when err is not a grading error.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return 0, false
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
