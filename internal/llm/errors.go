package llm

import (
	"fmt"
	"time"
)

// ErrRateLimit indicates the backend returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrBadOutput indicates the model produced output that does not conform
// to the requested schema.
type ErrBadOutput struct {
	Text string
	Err  error
}

func (e *ErrBadOutput) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *ErrBadOutput) Unwrap() error { return e.Err }

// ErrUnavailable indicates the backend is down or unreachable.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation backend unavailable: %v", e.Err)
	}
	return "generation backend unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }
