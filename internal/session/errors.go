package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when the session id is unknown
	// (never started, or evicted after its idle TTL).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive is returned when an operation targets a session
	// that is not in progress, or a question that is not the session's
	// current question.
	ErrSessionNotActive = errors.New("session not active")

	// ErrAttemptsExhausted is returned for answer submissions against a
	// question record that has already been closed.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrEmptyAnswer is returned for empty or whitespace-only
	// submissions; no attempt is consumed.
	ErrEmptyAnswer = errors.New("empty submission")

	// ErrQuestionContextMismatch is returned when a tutor message
	// references a question the session has already advanced past.
	ErrQuestionContextMismatch = errors.New("question context mismatch")

	// ErrPracticeOnly is returned when tutoring is requested in a graded
	// session.
	ErrPracticeOnly = errors.New("tutoring is only available in practice sessions")

	// ErrQuestionOpen is returned when advance is requested while the
	// current question record is still open.
	ErrQuestionOpen = errors.New("current question is still open")

	// ErrTutorUnavailable is returned when no tutoring channel is wired.
	ErrTutorUnavailable = errors.New("tutoring channel not configured")
)

// InvalidConfigError rejects a session configuration before any state is
// created.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid session configuration: %s", e.Reason)
}
