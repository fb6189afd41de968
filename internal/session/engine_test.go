package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/question"
	"github.com/studyloop/studyloop/internal/tutor"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubTutor struct {
	reply string
	calls int
}

func (s *stubTutor) Reply(_ context.Context, _ *question.Question, ex *tutor.Exchange, _ bool, message string) string {
	s.calls++
	ex.Append(tutor.SpeakerStudent, message)
	ex.Append(tutor.SpeakerTutor, s.reply)
	return s.reply
}

type failRepo struct {
	mu   sync.Mutex
	puts int
}

func (r *failRepo) Get(context.Context, string, string) (*progress.Record, error) { return nil, nil }

func (r *failRepo) Put(context.Context, *progress.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	return errors.New("progress store down")
}

func testQuestions(n int) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:          fmt.Sprintf("q%d", i+1),
			Subject:     "math",
			Tier:        question.TierBasic,
			Prompt:      fmt.Sprintf("What is %d + %d?", i+1, i+1),
			Answer:      fmt.Sprintf("%d", 2*(i+1)),
			Explanation: "Add the two numbers.",
			Hints:       []string{"Think of a number line.", "Count up from the first number."},
		}
	}
	return qs
}

func testEngine(t *testing.T, n int, opts Options) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts.Now = clock.Now
	if opts.ProgressRetryWait == 0 {
		opts.ProgressRetryWait = time.Millisecond
	}
	return NewEngine(question.NewMemoryStore(testQuestions(n)...), opts), clock
}

func mustStart(t *testing.T, e *Engine, mode Mode, count int) *Session {
	t.Helper()
	s, err := e.Start(context.Background(), "alice", Config{
		Subject:       "math",
		Tier:          question.TierBasic,
		QuestionCount: count,
		Mode:          mode,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestStartValidation(t *testing.T) {
	e, _ := testEngine(t, 2, Options{})
	valid := Config{Subject: "math", Tier: question.TierBasic, QuestionCount: 2}

	tests := []struct {
		name    string
		student string
		mutate  func(*Config)
	}{
		{"missing student", "", func(*Config) {}},
		{"missing subject", "alice", func(c *Config) { c.Subject = " " }},
		{"bad tier", "alice", func(c *Config) { c.Tier = question.Tier(9) }},
		{"zero questions", "alice", func(c *Config) { c.QuestionCount = 0 }},
		{"negative time limit", "alice", func(c *Config) { c.TimeLimit = -time.Minute }},
		{"bad mode", "alice", func(c *Config) { c.Mode = Mode("exam") }},
		{"no matching questions", "alice", func(c *Config) { c.Subject = "history" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := e.Start(context.Background(), tt.student, cfg)
			var ice *InvalidConfigError
			if !errors.As(err, &ice) {
				t.Fatalf("want InvalidConfigError, got %v", err)
			}
		})
	}
}

func TestGradedSessionFlow(t *testing.T) {
	repo := progress.NewMemoryRepo()
	e, _ := testEngine(t, 4, Options{
		Progress: progress.NewService(repo, progress.DefaultConfig()),
	})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 4)

	// q1: correct on the first attempt, auto-advance.
	res, err := e.Submit(ctx, s.ID, "q1", "2")
	if err != nil {
		t.Fatalf("Submit q1: %v", err)
	}
	if !res.Correct || res.Outcome != OutcomeCorrect {
		t.Fatalf("q1 result = %+v, want correct", res)
	}
	if res.Explanation == "" {
		t.Error("correct answer should carry the explanation")
	}

	// q2: two wrong attempts with escalating hints, then correct.
	res, err = e.Submit(ctx, s.ID, "q2", "5")
	if err != nil {
		t.Fatalf("Submit q2 first: %v", err)
	}
	if res.Correct || res.Outcome != OutcomeOpen {
		t.Fatalf("wrong attempt should leave the question open, got %+v", res)
	}
	if res.AttemptsRemaining != 2 {
		t.Errorf("attempts remaining = %d, want 2", res.AttemptsRemaining)
	}
	if res.Hint != "Think of a number line." {
		t.Errorf("first hint = %q", res.Hint)
	}
	res, _ = e.Submit(ctx, s.ID, "q2", "6")
	if res.AttemptsRemaining != 1 {
		t.Errorf("attempts remaining = %d, want 1", res.AttemptsRemaining)
	}
	if res.Hint != "Count up from the first number." {
		t.Errorf("second hint = %q, hints should escalate", res.Hint)
	}
	res, err = e.Submit(ctx, s.ID, "q2", "4")
	if err != nil || !res.Correct {
		t.Fatalf("third attempt should succeed: res=%+v err=%v", res, err)
	}

	// q3: exhaust all attempts, answer revealed, auto-advance.
	e.Submit(ctx, s.ID, "q3", "1")
	e.Submit(ctx, s.ID, "q3", "2")
	res, err = e.Submit(ctx, s.ID, "q3", "3")
	if err != nil {
		t.Fatalf("Submit q3 last: %v", err)
	}
	if res.Outcome != OutcomeRevealed {
		t.Fatalf("outcome = %q, want %q", res.Outcome, OutcomeRevealed)
	}
	if !strings.Contains(res.RevealedAnswer, "6") {
		t.Errorf("revealed answer %q should contain the canonical answer", res.RevealedAnswer)
	}
	if res.SessionCompleted {
		t.Error("session should not complete with q4 pending")
	}

	// A fourth submission to q3 targets a stale question.
	if _, err := e.Submit(ctx, s.ID, "q3", "6"); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("stale question submit: got %v, want ErrSessionNotActive", err)
	}

	// q4: correct, the session completes and is scored.
	res, err = e.Submit(ctx, s.ID, "q4", "8")
	if err != nil {
		t.Fatalf("Submit q4: %v", err)
	}
	if !res.SessionCompleted {
		t.Fatal("session should complete after the last question")
	}

	view, err := e.Describe(s.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if view.State != "completed" {
		t.Fatalf("state = %q, want completed", view.State)
	}
	sum := view.Summary
	if sum == nil {
		t.Fatal("completed session should carry a summary")
	}
	if sum.Score != 75 || !sum.Passed {
		t.Errorf("score = %.2f passed = %v, want 75 passed", sum.Score, sum.Passed)
	}
	if want := 100*4 + 10*75; sum.Points != want {
		t.Errorf("points = %d, want %d", sum.Points, want)
	}

	rec, err := repo.Get(ctx, "alice", "math")
	if err != nil || rec == nil {
		t.Fatalf("progress record missing: %v", err)
	}
	if rec.Sessions != 1 || rec.Average != 75 {
		t.Errorf("progress record = %+v", rec)
	}
}

func TestSubmitEmptyAnswerConsumesNothing(t *testing.T) {
	e, _ := testEngine(t, 1, Options{})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 1)

	if _, err := e.Submit(ctx, s.ID, "q1", "   "); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("got %v, want ErrEmptyAnswer", err)
	}
	res, err := e.Submit(ctx, s.ID, "q1", "wrong")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.AttemptsRemaining != 2 {
		t.Errorf("attempts remaining = %d; the empty submission must not have consumed one", res.AttemptsRemaining)
	}
}

func TestPracticeFlow(t *testing.T) {
	tut := &stubTutor{reply: "Try splitting the problem into parts."}
	e, _ := testEngine(t, 2, Options{Tutor: tut})
	ctx := context.Background()
	s := mustStart(t, e, ModePractice, 2)

	// Advancing past an open question is rejected.
	if err := e.Advance(ctx, s.ID); !errors.Is(err, ErrQuestionOpen) {
		t.Fatalf("Advance open: got %v, want ErrQuestionOpen", err)
	}

	// Tutoring is scoped to the current question.
	if _, err := e.Tutor(ctx, s.ID, "q2", "help"); !errors.Is(err, ErrQuestionContextMismatch) {
		t.Fatalf("mismatched tutor target: got %v", err)
	}
	reply, err := e.Tutor(ctx, s.ID, "q1", "where do I start?")
	if err != nil {
		t.Fatalf("Tutor: %v", err)
	}
	if reply != tut.reply {
		t.Errorf("reply = %q", reply)
	}
	if turns := e.ExchangeFor(s.ID, "q1"); len(turns) != 2 {
		t.Fatalf("exchange has %d turns, want student+tutor", len(turns))
	}

	// Correct answer closes the record but does not advance.
	res, err := e.Submit(ctx, s.ID, "q1", "2")
	if err != nil || !res.Correct {
		t.Fatalf("Submit: res=%+v err=%v", res, err)
	}
	if res.SessionCompleted {
		t.Error("practice session must not auto-advance")
	}
	view, _ := e.Describe(s.ID)
	if view.Position != 0 {
		t.Fatalf("position = %d, want 0 before explicit advance", view.Position)
	}

	// The channel stays open after the record closes.
	if _, err := e.Tutor(ctx, s.ID, "q1", "why is that the answer?"); err != nil {
		t.Fatalf("post-close tutoring: %v", err)
	}

	if err := e.Advance(ctx, s.ID); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	// The exchange does not survive the question.
	if turns := e.ExchangeFor(s.ID, "q1"); turns != nil {
		t.Errorf("stale exchange survived advance: %v", turns)
	}
	view, _ = e.Describe(s.ID)
	if view.Position != 1 || view.Question.ID != "q2" {
		t.Fatalf("view after advance = %+v", view)
	}

	// Practice submits past exhaustion hit the closed record.
	e.Submit(ctx, s.ID, "q2", "a")
	e.Submit(ctx, s.ID, "q2", "b")
	e.Submit(ctx, s.ID, "q2", "c")
	if _, err := e.Submit(ctx, s.ID, "q2", "d"); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("got %v, want ErrAttemptsExhausted", err)
	}

	if err := e.Advance(ctx, s.ID); err != nil {
		t.Fatalf("final Advance: %v", err)
	}
	view, _ = e.Describe(s.ID)
	if view.State != "completed" {
		t.Fatalf("state = %q, want completed", view.State)
	}
	if !view.Summary.Passed {
		t.Error("practice sessions never fail")
	}
}

func TestTutorGradedRejected(t *testing.T) {
	e, _ := testEngine(t, 1, Options{Tutor: &stubTutor{reply: "hi"}})
	s := mustStart(t, e, ModeGraded, 1)
	if _, err := e.Tutor(context.Background(), s.ID, "q1", "help"); !errors.Is(err, ErrPracticeOnly) {
		t.Fatalf("got %v, want ErrPracticeOnly", err)
	}
}

func TestCompleteEarlySkipsRemaining(t *testing.T) {
	e, _ := testEngine(t, 4, Options{})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 4)

	e.Submit(ctx, s.ID, "q1", "2")
	e.Submit(ctx, s.ID, "q2", "4")

	sum, err := e.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if sum.Score != 50 || sum.Passed {
		t.Errorf("summary = %+v, want score 50 failed", sum)
	}
	// Points count answered questions only; skipped ones earn nothing.
	if want := 100*2 + 10*50; sum.Points != want {
		t.Errorf("points = %d, want %d", sum.Points, want)
	}

	// Completing again returns the same stored summary.
	again, err := e.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if *again != *sum {
		t.Errorf("second Complete = %+v, want %+v", again, sum)
	}
}

func TestExpireTimerIdempotent(t *testing.T) {
	repo := progress.NewMemoryRepo()
	e, _ := testEngine(t, 2, Options{
		Progress: progress.NewService(repo, progress.DefaultConfig()),
	})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 2)

	e.Submit(ctx, s.ID, "q1", "2")
	if err := e.ExpireTimer(ctx, s.ID); err != nil {
		t.Fatalf("ExpireTimer: %v", err)
	}
	view, _ := e.Describe(s.ID)
	if view.State != "completed" {
		t.Fatalf("state = %q, want completed", view.State)
	}
	if view.Summary.Score != 50 {
		t.Errorf("score = %.2f, want 50", view.Summary.Score)
	}

	// Duplicate expiry signals change nothing.
	if err := e.ExpireTimer(ctx, s.ID); err != nil {
		t.Fatalf("duplicate ExpireTimer: %v", err)
	}
	rec, _ := repo.Get(ctx, "alice", "math")
	if rec.Sessions != 1 {
		t.Errorf("progress applied %d times, want once", rec.Sessions)
	}

	// Expiry for an evicted or unknown session is a no-op.
	if err := e.ExpireTimer(ctx, "gone"); err != nil {
		t.Fatalf("unknown session expiry: %v", err)
	}
}

func TestSubmitAfterCompletionRejected(t *testing.T) {
	e, _ := testEngine(t, 1, Options{})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 1)
	e.Submit(ctx, s.ID, "q1", "2")

	if _, err := e.Submit(ctx, s.ID, "q1", "2"); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("got %v, want ErrSessionNotActive", err)
	}
}

func TestProgressFailureDoesNotRollBackCompletion(t *testing.T) {
	repo := &failRepo{}
	e, _ := testEngine(t, 1, Options{
		Progress: progress.NewService(repo, progress.DefaultConfig()),
	})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 1)

	res, err := e.Submit(ctx, s.ID, "q1", "2")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.SessionCompleted {
		t.Fatal("completion must stand even when the progress update fails")
	}
	view, _ := e.Describe(s.ID)
	if view.State != "completed" || view.Summary == nil {
		t.Fatalf("view = %+v, want completed with summary", view)
	}
}

func TestFullyMasteredShortCircuit(t *testing.T) {
	repo := progress.NewMemoryRepo()
	repo.Put(context.Background(), &progress.Record{
		StudentID: "alice",
		Subject:   "math",
		Sessions:  3,
		Recent:    []float64{100, 100, 100},
		Average:   100,
		Tier:      progress.TierAdvanced,
	})
	e, _ := testEngine(t, 2, Options{
		Progress: progress.NewService(repo, progress.DefaultConfig()),
	})
	s := mustStart(t, e, ModeGraded, 2)

	view, _ := e.Describe(s.ID)
	if view.State != "completed" {
		t.Fatalf("state = %q, mastered subjects complete immediately", view.State)
	}
	if view.Question != nil {
		t.Error("no question should be served")
	}
}

func TestSweepIdle(t *testing.T) {
	e, clock := testEngine(t, 1, Options{IdleTTL: time.Hour})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 1)
	fresh := mustStart(t, e, ModeGraded, 1)

	clock.Advance(30 * time.Minute)
	e.Submit(ctx, fresh.ID, "q1", "wrong")

	clock.Advance(45 * time.Minute)
	if n := e.SweepIdle(); n != 1 {
		t.Fatalf("evicted %d sessions, want 1", n)
	}
	if _, err := e.Describe(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("stale session still resolvable: %v", err)
	}
	if _, err := e.Describe(fresh.ID); err != nil {
		t.Fatalf("active session evicted: %v", err)
	}
}

func TestScoreRederivesFromRecords(t *testing.T) {
	e, _ := testEngine(t, 3, Options{})
	ctx := context.Background()
	s := mustStart(t, e, ModeGraded, 3)

	e.Submit(ctx, s.ID, "q1", "2")
	e.Submit(ctx, s.ID, "q2", "wrong")
	sum, err := e.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// The stored summary is a pure function of the closed records.
	correct, answered := tally(s.Records)
	rederived := progress.Summarize(correct, answered, len(s.Questions), true, progress.DefaultConfig())
	if rederived != *sum {
		t.Errorf("rederived %+v, stored %+v", rederived, *sum)
	}
}

func TestAnswerViewNeverLeaks(t *testing.T) {
	e, _ := testEngine(t, 1, Options{})
	s := mustStart(t, e, ModeGraded, 1)
	view, _ := e.Describe(s.ID)
	if view.Question == nil {
		t.Fatal("in-progress session should expose its question")
	}
	if view.Question.Prompt == "" || view.Question.ID != "q1" {
		t.Errorf("question view = %+v", view.Question)
	}
}
