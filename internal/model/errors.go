package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDocumentNotIndexed  = errors.New("document not indexed")
	ErrInsufficientContent = errors.New("insufficient content")
	ErrRateLimited         = errors.New("rate limited")
	ErrMalformedGeneration = errors.New("malformed generation")
	ErrValidationSkipped   = errors.New("validation skipped")
	ErrModelRefused        = errors.New("model refused")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnexpected          = errors.New("unexpected error")
)

// RateLimitError is returned when an upstream provider rejects a call for quota reasons.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := e.Provider + ": rate limited"
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RefusalError is returned when a provider blocks the request or the reply.
type RefusalError struct {
	Provider string
	Reason   string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("%s refused: %s", e.Provider, e.Reason)
}

func (e *RefusalError) Is(target error) bool { return target == ErrModelRefused }

// Error codes reported in result objects and HTTP bodies.
const (
	CodeDocumentNotIndexed  = "document_not_indexed"
	CodeInsufficientContent = "insufficient_content"
	CodeRateLimited         = "rate_limited"
	CodeMalformedGeneration = "malformed_generation"
	CodeValidationSkipped   = "validation_skipped"
	CodeModelRefused        = "model_refused"
	CodeInvalidRequest      = "invalid_request"
	CodeUnexpected          = "unexpected"
)

// ErrorCode maps err to one of the Code constants. A nil error yields "".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrDocumentNotIndexed):
		return CodeDocumentNotIndexed
	case errors.Is(err, ErrInsufficientContent):
		return CodeInsufficientContent
	case errors.Is(err, ErrMalformedGeneration):
		return CodeMalformedGeneration
	case errors.Is(err, ErrModelRefused):
		return CodeModelRefused
	case errors.Is(err, ErrValidationSkipped):
		return CodeValidationSkipped
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeUnexpected
	}
}

// RetryAfter extracts the provider's retry hint from a rate-limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
