package llm

import (
	"context"
	"log"
	"time"
)

// Call captures one generation request for audit/analytics storage.
type Call struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// Recorder persists generation call events.
type Recorder interface {
	RecordCall(ctx context.Context, call Call) error
}

// recordingProvider records every request as a Call event.
type recordingProvider struct {
	inner    Provider
	recorder Recorder
}

// WithRecording wraps a Provider with call-event recording.
func WithRecording(p Provider, rec Recorder) Provider {
	return &recordingProvider{inner: p, recorder: rec}
}

func (r *recordingProvider) Complete(ctx context.Context, p Prompt) (*Result, error) {
	start := time.Now()

	res, err := r.inner.Complete(ctx, p)

	call := Call{
		Provider:  r.inner.Model(),
		Model:     r.inner.Model(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if res != nil {
		call.Model = res.Model
		call.InputTokens = res.Usage.InputTokens
		call.OutputTokens = res.Usage.OutputTokens
	}
	if err != nil {
		call.ErrorMessage = err.Error()
	}

	// Recording failures must not fail the request.
	if recErr := r.recorder.RecordCall(ctx, call); recErr != nil {
		log.Printf("warning: record generation call: %v", recErr)
	}

	return res, err
}

func (r *recordingProvider) Model() string { return r.inner.Model() }

type contextKey string

const purposeKey contextKey = "gen_purpose"

// WithPurpose attaches a purpose label ("tutor-reply", "question-hint")
// to the context for call recording.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
