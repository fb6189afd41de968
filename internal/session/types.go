package session

import (
	"sync"
	"time"

	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/question"
	"github.com/studyloop/studyloop/internal/tutor"
)

// Mode selects graded or practice behavior for a session.
type Mode string

const (
	ModeGraded   Mode = "graded"
	ModePractice Mode = "practice"
)

// Valid reports whether m is a defined mode.
func (m Mode) Valid() bool { return m == ModeGraded || m == ModePractice }

// State is the session lifecycle state.
type State int

const (
	StateCreated State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInProgress:
		return "in-progress"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Outcome is the final disposition of a question record.
type Outcome string

const (
	OutcomeOpen     Outcome = ""
	OutcomeCorrect  Outcome = "correct"
	OutcomeRevealed Outcome = "incorrect-revealed"
	OutcomeSkipped  Outcome = "skipped-by-timeout"
)

// DefaultMaxAttempts is the per-question attempt budget.
const DefaultMaxAttempts = 3

// Config selects what a session delivers. It is produced by the caller
// and validated by the engine at start.
type Config struct {
	Subject       string
	Tier          question.Tier
	QuestionCount int
	TimeLimit     time.Duration // 0 = untimed
	Mode          Mode
	MaxAttempts   int // 0 = DefaultMaxAttempts
}

// Attempt is one answer submission against a question record.
type Attempt struct {
	Answer    string    `json:"answer"`
	At        time.Time `json:"at"`
	Correct   bool      `json:"correct"`
	HintLevel int       `json:"hintLevel"` // hints shown before this attempt, 0 = none
}

// QuestionRecord tracks one question's attempts within a session. It is
// created when the session advances to the question and closed with an
// Outcome when the session advances past it.
type QuestionRecord struct {
	Question  question.Question
	Attempts  []Attempt
	Outcome   Outcome
	HintsUsed int
	StartedAt time.Time
	TimeSpent time.Duration
}

// Closed reports whether the record has reached a final outcome.
func (r *QuestionRecord) Closed() bool { return r.Outcome != OutcomeOpen }

// AttemptsUsed returns the number of attempts consumed.
func (r *QuestionRecord) AttemptsUsed() int { return len(r.Attempts) }

// Answered reports whether the student actually engaged the question
// (at least one attempt; skipped records have none).
func (r *QuestionRecord) Answered() bool { return len(r.Attempts) > 0 }

// Session is the single source of truth for one student's run through a
// question set. All mutation goes through the Engine, serialized by mu.
type Session struct {
	mu sync.Mutex

	ID        string
	StudentID string
	Mode      Mode
	Config    Config

	Questions []question.Question
	Records   []*QuestionRecord // lazily appended as the session advances
	Position  int

	State       State
	StartedAt   time.Time
	CompletedAt *time.Time

	// Exchange is the tutoring dialogue for the current question only;
	// advancing discards it.
	Exchange *tutor.Exchange

	// Summary is set once, when the session completes.
	Summary *progress.Summary

	lastActivity time.Time
}

// currentRecord returns the open record for the current position, or nil.
func (s *Session) currentRecord() *QuestionRecord {
	if s.Position < len(s.Records) {
		return s.Records[s.Position]
	}
	return nil
}

// currentQuestion returns the active question, or nil when completed.
func (s *Session) currentQuestion() *question.Question {
	if s.State != StateInProgress || s.Position >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Position]
}

// AttemptResult is the typed reply to an answer submission.
type AttemptResult struct {
	Correct           bool    `json:"correct"`
	Outcome           Outcome `json:"outcome,omitempty"` // set when the record closed
	AttemptsRemaining int     `json:"attemptsRemaining"`
	Hint              string  `json:"hint,omitempty"`
	RevealedAnswer    string  `json:"revealedAnswer,omitempty"`
	Explanation       string  `json:"explanation,omitempty"`
	SessionCompleted  bool    `json:"sessionCompleted"`
}

// QuestionView is a question as shown to the student: no canonical
// answer, no explanation, no hints.
type QuestionView struct {
	ID      string            `json:"id"`
	Subject string            `json:"subject"`
	Tier    string            `json:"tier"`
	Prompt  string            `json:"prompt"`
	Choices []question.Choice `json:"choices,omitempty"`
}

// View is a read-only snapshot of a session for callers.
type View struct {
	ID             string            `json:"sessionId"`
	Mode           Mode              `json:"mode"`
	State          string            `json:"state"`
	Position       int               `json:"position"`
	TotalQuestions int               `json:"totalQuestions"`
	Question       *QuestionView     `json:"question,omitempty"`
	Summary        *progress.Summary `json:"summary,omitempty"`
}

func viewQuestion(q *question.Question) *QuestionView {
	if q == nil {
		return nil
	}
	return &QuestionView{
		ID:      q.ID,
		Subject: q.Subject,
		Tier:    q.Tier.String(),
		Prompt:  q.Prompt,
		Choices: q.Choices,
	}
}
