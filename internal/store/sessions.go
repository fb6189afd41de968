package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyloop/studyloop/internal/session"
)

// SessionArchive persists completed sessions. It implements
// session.Archiver.
type SessionArchive struct {
	db *sql.DB
}

// ArchiveSession stores a completed session's outcome and full question
// records. Archiving the same session twice replaces the row.
func (a *SessionArchive) ArchiveSession(ctx context.Context, s *session.Session) error {
	if s.Summary == nil {
		return fmt.Errorf("session %s has no summary", s.ID)
	}
	records, err := json.Marshal(s.Records)
	if err != nil {
		return fmt.Errorf("encode records for %s: %w", s.ID, err)
	}

	completedAt := time.Now()
	if s.CompletedAt != nil {
		completedAt = *s.CompletedAt
	}
	passed := 0
	if s.Summary.Passed {
		passed = 1
	}

	_, err = a.db.ExecContext(ctx, `INSERT INTO sessions
		(id, student_id, subject, tier, mode, score, passed, points,
		 correct_count, total_questions, records_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			score=excluded.score, passed=excluded.passed, points=excluded.points,
			correct_count=excluded.correct_count, records_json=excluded.records_json,
			completed_at=excluded.completed_at`,
		s.ID, s.StudentID, s.Config.Subject, int(s.Config.Tier), string(s.Mode),
		s.Summary.Score, passed, s.Summary.Points,
		s.Summary.CorrectCount, s.Summary.TotalQuestions, string(records),
		s.StartedAt.Unix(), completedAt.Unix())
	if err != nil {
		return &UnavailableError{Op: "archive session", Err: err}
	}
	return nil
}

// ArchivedSession is one row of a student's session history.
type ArchivedSession struct {
	ID             string    `json:"sessionId"`
	Subject        string    `json:"subject"`
	Mode           string    `json:"mode"`
	Score          float64   `json:"score"`
	Passed         bool      `json:"passed"`
	Points         int       `json:"pointsEarned"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletedAt    time.Time `json:"completedAt"`
}

// History returns a student's most recent sessions for a subject, newest
// first.
func (a *SessionArchive) History(ctx context.Context, studentID, subject string, limit int) ([]ArchivedSession, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, subject, mode, score, passed, points,
			correct_count, total_questions, completed_at
		FROM sessions
		WHERE student_id = ? AND subject = ? COLLATE NOCASE
		ORDER BY completed_at DESC, id
		LIMIT ?`, studentID, subject, limit)
	if err != nil {
		return nil, &UnavailableError{Op: "session history", Err: err}
	}
	defer rows.Close()

	var out []ArchivedSession
	for rows.Next() {
		var h ArchivedSession
		var passed int
		var completed int64
		if err := rows.Scan(&h.ID, &h.Subject, &h.Mode, &h.Score, &passed, &h.Points,
			&h.CorrectCount, &h.TotalQuestions, &completed); err != nil {
			return nil, &UnavailableError{Op: "session history", Err: err}
		}
		h.Passed = passed != 0
		h.CompletedAt = time.Unix(completed, 0).UTC()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Op: "session history", Err: err}
	}
	return out, nil
}
