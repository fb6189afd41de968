package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studyloop/studyloop/internal/progress"
)

// ProgressRepo stores per-student, per-subject progress records. It
// implements progress.Repo.
type ProgressRepo struct {
	db *sql.DB
}

// Get returns the record for (student, subject), or (nil, nil) when no
// session has completed yet.
func (r *ProgressRepo) Get(ctx context.Context, studentID, subject string) (*progress.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT points, average, tier, recent_json, sessions, updated_at
		FROM progress WHERE student_id = ? AND subject = ? COLLATE NOCASE`, studentID, subject)

	rec := &progress.Record{StudentID: studentID, Subject: subject}
	var recent string
	var updated int64
	err := row.Scan(&rec.Points, &rec.Average, &rec.Tier, &recent, &rec.Sessions, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &UnavailableError{Op: "load progress", Err: err}
	}
	if err := json.Unmarshal([]byte(recent), &rec.Recent); err != nil {
		return nil, fmt.Errorf("decode recent scores: %w", err)
	}
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return rec, nil
}

// Put upserts the record.
func (r *ProgressRepo) Put(ctx context.Context, rec *progress.Record) error {
	recent, err := json.Marshal(rec.Recent)
	if err != nil {
		return fmt.Errorf("encode recent scores: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO progress
		(student_id, subject, points, average, tier, recent_json, sessions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, subject) DO UPDATE SET
			points=excluded.points, average=excluded.average, tier=excluded.tier,
			recent_json=excluded.recent_json, sessions=excluded.sessions,
			updated_at=excluded.updated_at`,
		rec.StudentID, rec.Subject, rec.Points, rec.Average, string(rec.Tier),
		string(recent), rec.Sessions, rec.UpdatedAt.Unix())
	if err != nil {
		return &UnavailableError{Op: "store progress", Err: err}
	}
	return nil
}
