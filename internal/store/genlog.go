package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/studyloop/studyloop/internal/llm"
)

// GenLog records generation call events for audit and cost tracking. It
// implements llm.Recorder.
type GenLog struct {
	db *sql.DB
}

func (g *GenLog) RecordCall(ctx context.Context, call llm.Call) error {
	success := 0
	if call.Success {
		success = 1
	}
	_, err := g.db.ExecContext(ctx, `INSERT INTO gen_events
		(at, provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), call.Provider, call.Model, call.Purpose,
		call.InputTokens, call.OutputTokens, call.LatencyMs, success, call.ErrorMessage)
	if err != nil {
		return &UnavailableError{Op: "record generation call", Err: err}
	}
	return nil
}
