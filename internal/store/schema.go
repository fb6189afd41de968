package store

import "database/sql"

// The schema is applied idempotently at open; columns are stable and
// additive changes get new CREATE statements here.
const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id           TEXT PRIMARY KEY,
	subject      TEXT NOT NULL,
	tier         INTEGER NOT NULL,
	prompt       TEXT NOT NULL,
	choices_json TEXT NOT NULL DEFAULT '[]',
	answer       TEXT NOT NULL,
	explanation  TEXT NOT NULL DEFAULT '',
	hints_json   TEXT NOT NULL DEFAULT '[]',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_subject_tier ON questions (subject, tier);

CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	student_id      TEXT NOT NULL,
	subject         TEXT NOT NULL,
	tier            INTEGER NOT NULL,
	mode            TEXT NOT NULL,
	score           REAL NOT NULL,
	passed          INTEGER NOT NULL,
	points          INTEGER NOT NULL,
	correct_count   INTEGER NOT NULL,
	total_questions INTEGER NOT NULL,
	records_json    TEXT NOT NULL,
	started_at      INTEGER NOT NULL,
	completed_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_student ON sessions (student_id, subject);

CREATE TABLE IF NOT EXISTS progress (
	student_id  TEXT NOT NULL,
	subject     TEXT NOT NULL,
	points      INTEGER NOT NULL,
	average     REAL NOT NULL,
	tier        TEXT NOT NULL,
	recent_json TEXT NOT NULL,
	sessions    INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (student_id, subject)
);

CREATE TABLE IF NOT EXISTS gen_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	at            INTEGER NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	purpose       TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	latency_ms    INTEGER NOT NULL,
	success       INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
