package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyloop/studyloop/internal/question"
)

// QuestionRepo reads and writes the generated question bank. It
// implements question.Store.
type QuestionRepo struct {
	db *sql.DB
}

// PutQuestions upserts a batch of questions, keyed by id.
func (r *QuestionRepo) PutQuestions(ctx context.Context, qs []question.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &UnavailableError{Op: "put questions", Err: err}
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, q := range qs {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return fmt.Errorf("encode choices for %s: %w", q.ID, err)
		}
		hints, err := json.Marshal(q.Hints)
		if err != nil {
			return fmt.Errorf("encode hints for %s: %w", q.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO questions
			(id, subject, tier, prompt, choices_json, answer, explanation, hints_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				subject=excluded.subject, tier=excluded.tier, prompt=excluded.prompt,
				choices_json=excluded.choices_json, answer=excluded.answer,
				explanation=excluded.explanation, hints_json=excluded.hints_json`,
			q.ID, q.Subject, int(q.Tier), q.Prompt, string(choices), q.Answer, q.Explanation, string(hints), now)
		if err != nil {
			return &UnavailableError{Op: "put questions", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &UnavailableError{Op: "put questions", Err: err}
	}
	return nil
}

// FetchQuestions returns up to count questions for the subject and tier,
// oldest first so batches are served in authoring order.
func (r *QuestionRepo) FetchQuestions(ctx context.Context, subject string, tier question.Tier, count int) ([]question.Question, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, subject, tier, prompt, choices_json, answer, explanation, hints_json
		FROM questions
		WHERE subject = ? COLLATE NOCASE AND tier = ?
		ORDER BY created_at, id
		LIMIT ?`, subject, int(tier), count)
	if err != nil {
		return nil, &UnavailableError{Op: "fetch questions", Err: err}
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		var q question.Question
		var tierNum int
		var choices, hints string
		if err := rows.Scan(&q.ID, &q.Subject, &tierNum, &q.Prompt, &choices, &q.Answer, &q.Explanation, &hints); err != nil {
			return nil, &UnavailableError{Op: "fetch questions", Err: err}
		}
		q.Tier = question.Tier(tierNum)
		if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
			return nil, fmt.Errorf("decode choices for %s: %w", q.ID, err)
		}
		if err := json.Unmarshal([]byte(hints), &q.Hints); err != nil {
			return nil, fmt.Errorf("decode hints for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Op: "fetch questions", Err: err}
	}
	return out, nil
}
