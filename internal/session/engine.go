package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/question"
	"github.com/studyloop/studyloop/internal/tutor"
)

// TutorChannel generates per-question tutoring replies.
// *tutor.Channel satisfies this.
type TutorChannel interface {
	Reply(ctx context.Context, q *question.Question, ex *tutor.Exchange, revealed bool, message string) string
}

// Hinter generates question-specific hints. Failures fall back to the
// question's own hint ladder.
type Hinter interface {
	Hint(ctx context.Context, q *question.Question, level int) (string, error)
}

// Archiver persists completed sessions for history and analytics.
type Archiver interface {
	ArchiveSession(ctx context.Context, s *Session) error
}

// Options wires the engine's collaborators. Every field is optional;
// zero values get defaults.
type Options struct {
	Progress *progress.Service
	Tutor    TutorChannel
	Hinter   Hinter
	Archive  Archiver

	// MaxAttempts overrides the default per-question attempt budget.
	MaxAttempts int

	// IdleTTL is how long an inactive session survives before the
	// janitor evicts it. Default 24h.
	IdleTTL time.Duration

	// ProgressRetryWait is the base wait between progress-update retries.
	ProgressRetryWait time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Engine orchestrates session lifecycles. Each session is owned by one
// student and serialized by its own mutex; the engine-level lock only
// guards the registry.
type Engine struct {
	questions question.Store
	progress  *progress.Service
	tutor     TutorChannel
	hinter    Hinter
	archive   Archiver

	maxAttempts int
	idleTTL     time.Duration
	retryWait   time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewEngine creates a session engine backed by the given question store.
func NewEngine(questions question.Store, opts Options) *Engine {
	e := &Engine{
		questions:   questions,
		progress:    opts.Progress,
		tutor:       opts.Tutor,
		hinter:      opts.Hinter,
		archive:     opts.Archive,
		maxAttempts: opts.MaxAttempts,
		idleTTL:     opts.IdleTTL,
		retryWait:   opts.ProgressRetryWait,
		now:         opts.Now,
		sessions:    make(map[string]*Session),
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.idleTTL <= 0 {
		e.idleTTL = 24 * time.Hour
	}
	if e.retryWait <= 0 {
		e.retryWait = 2 * time.Second
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Start validates the configuration, pulls the question set, and creates
// a session in progress. When the student has already fully mastered the
// subject, the session short-circuits directly to Completed.
func (e *Engine) Start(ctx context.Context, studentID string, cfg Config) (*Session, error) {
	if err := validateConfig(studentID, &cfg); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = e.maxAttempts
	}

	now := e.now()
	s := &Session{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		Mode:         cfg.Mode,
		Config:       cfg,
		StartedAt:    now,
		lastActivity: now,
	}

	// Already-mastered short circuit: a valid terminal outcome, not an
	// error.
	if e.progress != nil && e.progress.FullyMastered(ctx, studentID, cfg.Subject) {
		s.State = StateCompleted
		s.CompletedAt = &now
		s.Summary = &progress.Summary{Score: 100, Passed: true}
		e.register(s)
		return s, nil
	}

	qs, err := e.questions.FetchQuestions(ctx, cfg.Subject, cfg.Tier, cfg.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, &InvalidConfigError{Reason: "no questions available for subject and tier"}
	}

	s.Questions = qs
	s.State = StateInProgress
	e.openRecord(s)
	e.register(s)
	return s, nil
}

func validateConfig(studentID string, cfg *Config) error {
	switch {
	case strings.TrimSpace(studentID) == "":
		return &InvalidConfigError{Reason: "student identity is required"}
	case strings.TrimSpace(cfg.Subject) == "":
		return &InvalidConfigError{Reason: "subject is required"}
	case !cfg.Tier.Known():
		return &InvalidConfigError{Reason: "unknown difficulty tier"}
	case cfg.QuestionCount <= 0:
		return &InvalidConfigError{Reason: "question count must be positive"}
	case cfg.TimeLimit < 0:
		return &InvalidConfigError{Reason: "time limit must not be negative"}
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeGraded
	}
	if !cfg.Mode.Valid() {
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	return nil
}

// Submit evaluates one answer for the session's current question and
// applies the attempt/hint policy.
func (e *Engine) Submit(ctx context.Context, sessionID, questionID, answer string) (*AttemptResult, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = e.now()

	q := s.currentQuestion()
	if q == nil || s.State != StateInProgress {
		return nil, ErrSessionNotActive
	}
	if q.ID != questionID {
		return nil, ErrSessionNotActive
	}

	// Validation before any state mutation: an empty submission consumes
	// nothing.
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	rec := s.currentRecord()
	if rec.Closed() {
		return nil, ErrAttemptsExhausted
	}

	correct := question.CheckAnswer(answer, q)
	rec.Attempts = append(rec.Attempts, Attempt{
		Answer:    answer,
		At:        e.now(),
		Correct:   correct,
		HintLevel: rec.HintsUsed,
	})

	res := &AttemptResult{Correct: correct}
	used := rec.AttemptsUsed()

	switch {
	case correct:
		e.closeRecord(rec, OutcomeCorrect)
		res.Outcome = OutcomeCorrect
		res.AttemptsRemaining = s.Config.MaxAttempts - used
		res.Explanation = q.Explanation

	case used < s.Config.MaxAttempts:
		res.AttemptsRemaining = s.Config.MaxAttempts - used
		res.Hint = e.hintFor(ctx, q, used-1)
		rec.HintsUsed = used
		return res, nil

	default:
		e.closeRecord(rec, OutcomeRevealed)
		res.Outcome = OutcomeRevealed
		res.AttemptsRemaining = 0
		res.RevealedAnswer = q.RevealText()
		res.Explanation = q.Explanation
	}

	// Graded sessions advance automatically on close; practice sessions
	// wait for the student's acknowledgment.
	if s.Mode == ModeGraded {
		e.advanceLocked(ctx, s)
		res.SessionCompleted = s.State == StateCompleted
	}
	return res, nil
}

// hintFor prefers a generated, question-specific hint and falls back to
// the authored/synthesized ladder.
func (e *Engine) hintFor(ctx context.Context, q *question.Question, level int) string {
	if e.hinter != nil {
		if hint, err := e.hinter.Hint(ctx, q, level); err == nil {
			return hint
		}
	}
	return question.HintAt(q, level)
}

// Advance moves a practice session past its (closed) current question.
func (e *Engine) Advance(ctx context.Context, sessionID string) error {
	s, err := e.get(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = e.now()

	if s.State != StateInProgress {
		return ErrSessionNotActive
	}
	rec := s.currentRecord()
	if rec == nil || !rec.Closed() {
		return ErrQuestionOpen
	}
	e.advanceLocked(ctx, s)
	return nil
}

// Complete terminates the session early: unattempted questions are
// marked skipped and the session is scored. Completing an already
// completed session returns the stored summary (idempotent).
func (e *Engine) Complete(ctx context.Context, sessionID string) (*progress.Summary, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State == StateCompleted {
		return s.Summary, nil
	}
	e.skipRemaining(s)
	return e.completeLocked(ctx, s), nil
}

// ExpireTimer is the timed-session expiry signal. Remaining questions
// are marked skipped-by-timeout and the session completes. A duplicate
// signal after completion (or after eviction) is a no-op.
func (e *Engine) ExpireTimer(ctx context.Context, sessionID string) error {
	s, err := e.get(sessionID)
	if err != nil {
		return nil // session gone; expiry is best-effort
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State == StateCompleted {
		return nil
	}
	e.skipRemaining(s)
	e.completeLocked(ctx, s)
	return nil
}

// Tutor routes a free-form message to the tutoring channel, scoped to
// the session's current question.
func (e *Engine) Tutor(ctx context.Context, sessionID, questionID, message string) (string, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = e.now()

	if s.State != StateInProgress {
		return "", ErrSessionNotActive
	}
	if s.Mode != ModePractice {
		return "", ErrPracticeOnly
	}
	q := s.currentQuestion()
	if q == nil || q.ID != questionID {
		return "", ErrQuestionContextMismatch
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyAnswer
	}
	if e.tutor == nil {
		return "", ErrTutorUnavailable
	}

	if s.Exchange == nil || s.Exchange.QuestionID != q.ID {
		s.Exchange = tutor.NewExchange(q.ID)
	}

	// After the record closes the channel stays open for clarification
	// and the tutor may discuss the answer freely.
	revealed := s.currentRecord().Closed()
	return e.tutor.Reply(ctx, q, s.Exchange, revealed, message), nil
}

// ExchangeFor returns the tutoring turns for the given question, or nil
// when the question is not the session's current one (exchanges never
// outlive their question).
func (e *Engine) ExchangeFor(sessionID, questionID string) []tutor.Turn {
	s, err := e.get(sessionID)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Exchange == nil || s.Exchange.QuestionID != questionID {
		return nil
	}
	return append([]tutor.Turn(nil), s.Exchange.Turns...)
}

// Describe returns a read-only snapshot of the session.
func (e *Engine) Describe(sessionID string) (*View, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return &View{
		ID:             s.ID,
		Mode:           s.Mode,
		State:          s.State.String(),
		Position:       s.Position,
		TotalQuestions: len(s.Questions),
		Question:       viewQuestion(s.currentQuestion()),
		Summary:        s.Summary,
	}, nil
}

// Owner returns the student that owns the session.
func (e *Engine) Owner(sessionID string) (string, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return "", err
	}
	return s.StudentID, nil
}

// SweepIdle evicts sessions whose last activity is older than the idle
// TTL. Abandoned in-progress sessions never reach scoring. Returns the
// number of evicted sessions.
func (e *Engine) SweepIdle() int {
	cutoff := e.now().Add(-e.idleTTL)

	e.mu.Lock()
	defer e.mu.Unlock()
	evicted := 0
	for id, s := range e.sessions {
		s.mu.Lock()
		stale := s.lastActivity.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(e.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (e *Engine) register(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[s.ID] = s
}

func (e *Engine) get(sessionID string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// openRecord creates the record for the current position.
func (e *Engine) openRecord(s *Session) {
	s.Records = append(s.Records, &QuestionRecord{
		Question:  s.Questions[s.Position],
		StartedAt: e.now(),
	})
}

func (e *Engine) closeRecord(rec *QuestionRecord, outcome Outcome) {
	rec.Outcome = outcome
	rec.TimeSpent = e.now().Sub(rec.StartedAt)
}

// advanceLocked closes out the current question, discards its tutoring
// exchange, and moves on; reaching the end of the list completes the
// session. Caller holds s.mu.
func (e *Engine) advanceLocked(ctx context.Context, s *Session) {
	s.Exchange = nil
	s.Position++
	if s.Position >= len(s.Questions) {
		e.completeLocked(ctx, s)
		return
	}
	e.openRecord(s)
}

// skipRemaining closes the current open record (if any) and all
// not-yet-reached questions as skipped. Caller holds s.mu.
func (e *Engine) skipRemaining(s *Session) {
	if rec := s.currentRecord(); rec != nil && !rec.Closed() {
		e.closeRecord(rec, OutcomeSkipped)
	}
	for i := len(s.Records); i < len(s.Questions); i++ {
		s.Records = append(s.Records, &QuestionRecord{
			Question: s.Questions[i],
			Outcome:  OutcomeSkipped,
		})
	}
}

// completeLocked transitions to Completed and triggers scoring exactly
// once. Session completion is the source of truth: archive and progress
// failures never roll it back. Caller holds s.mu.
func (e *Engine) completeLocked(ctx context.Context, s *Session) *progress.Summary {
	now := e.now()
	s.State = StateCompleted
	s.CompletedAt = &now
	s.Exchange = nil
	s.Position = len(s.Questions)

	correct, answered := tally(s.Records)
	sum := progress.Summarize(correct, answered, len(s.Questions), s.Mode == ModeGraded, e.scoringConfig())
	s.Summary = &sum

	if e.archive != nil {
		if err := e.archive.ArchiveSession(ctx, s); err != nil {
			log.Printf("archive session %s: %v", s.ID, err)
		}
	}

	if e.progress != nil {
		if _, err := e.progress.Apply(ctx, s.StudentID, s.Config.Subject, sum.Score, sum.Points); err != nil {
			log.Printf("progress update for session %s failed, will retry: %v", s.ID, err)
			go e.retryProgress(s.StudentID, s.Config.Subject, sum)
		}
	}
	return &sum
}

// retryProgress re-applies a failed progress update off the request
// path. The session is already completed; this only repairs the
// aggregate.
func (e *Engine) retryProgress(studentID, subject string, sum progress.Summary) {
	wait := e.retryWait
	for attempt := 0; attempt < 3; attempt++ {
		time.Sleep(wait)
		wait *= 2
		if _, err := e.progress.Apply(context.Background(), studentID, subject, sum.Score, sum.Points); err == nil {
			return
		}
	}
	log.Printf("progress update for %s/%s dropped after retries", studentID, subject)
}

func (e *Engine) scoringConfig() progress.Config {
	if e.progress != nil {
		return e.progress.Config()
	}
	return progress.DefaultConfig()
}

// tally counts correct and answered records. Pure over the record list,
// so a stored summary can always be re-derived.
func tally(records []*QuestionRecord) (correct, answered int) {
	for _, r := range records {
		if r.Outcome == OutcomeCorrect {
			correct++
		}
		if r.Answered() {
			answered++
		}
	}
	return correct, answered
}
