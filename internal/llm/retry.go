package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/avast/retry-go"
)

// DefaultMaxRetryAttempts is the number of retries after the first call.
const DefaultMaxRetryAttempts = 2

// StatusError is a non-2xx reply that is not a rate limit.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: response error %d", e.Provider, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a server or network failure worth
// repeating. Rate limits, refusals and client errors are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

type retrying struct {
	next     Generator
	attempts uint
	delay    time.Duration
}

// WithRetry repeats transient failures of g up to attempts more times with
// exponential backoff.
func WithRetry(g Generator, attempts uint) Generator {
	return &retrying{next: g, attempts: attempts, delay: 500 * time.Millisecond}
}

func (r *retrying) Generate(ctx context.Context, req Request) (Response, error) {
	var resp Response
	err := retry.Do(
		func() error {
			var err error
			resp, err = r.next.Generate(ctx, req)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts+1),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("retrying LLM call", "attempt", n+1, "model", req.Model, "error", err)
		}),
	)
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}
