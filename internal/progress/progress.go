// Package progress aggregates completed sessions into per-student,
// per-subject mastery records: cumulative points, rolling average
// percentage, mastery tier, and improvement trend.
package progress

import (
	"context"
	"fmt"
	"time"
)

// MasteryTier is the subject-level mastery tier derived from the rolling
// average percentage.
type MasteryTier string

const (
	TierBeginner     MasteryTier = "beginner"
	TierElementary   MasteryTier = "elementary"
	TierIntermediate MasteryTier = "intermediate"
	TierAdvanced     MasteryTier = "advanced"
)

// Config holds the scoring and level-progression constants. The observed
// values are defaults, not invariants; deployments tune them here.
type Config struct {
	// PassThreshold is the minimum score (percent) for a graded session
	// to count as passed.
	PassThreshold float64

	// PointsPerQuestion and PointsPerScoreUnit define the point award:
	// PointsPerQuestion*questionsAnswered + PointsPerScoreUnit*score.
	PointsPerQuestion  int
	PointsPerScoreUnit int

	// WindowSize is how many recent session percentages feed the rolling
	// average and improvement trend.
	WindowSize int

	// Tier breakpoints on the rolling average.
	AdvancedAt     float64
	IntermediateAt float64
	ElementaryAt   float64
}

// DefaultConfig returns the observed production constants.
func DefaultConfig() Config {
	return Config{
		PassThreshold:      70,
		PointsPerQuestion:  100,
		PointsPerScoreUnit: 10,
		WindowSize:         10,
		AdvancedAt:         90,
		IntermediateAt:     70,
		ElementaryAt:       50,
	}
}

// TierFor maps a rolling average percentage to a mastery tier.
func TierFor(average float64, cfg Config) MasteryTier {
	switch {
	case average >= cfg.AdvancedAt:
		return TierAdvanced
	case average >= cfg.IntermediateAt:
		return TierIntermediate
	case average >= cfg.ElementaryAt:
		return TierElementary
	default:
		return TierBeginner
	}
}

// Record is the per-student, per-subject progress aggregate. It is
// updated exactly once per completed session.
type Record struct {
	StudentID string      `json:"studentId"`
	Subject   string      `json:"subject"`
	Points    int         `json:"points"`
	Average   float64     `json:"average"`
	Tier      MasteryTier `json:"tier"`
	Recent    []float64   `json:"recent"` // last N session percentages, oldest first
	Sessions  int         `json:"sessions"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Improvement is the signed percentage delta between the first and most
// recent session in the rolling window.
func (r *Record) Improvement() float64 {
	if len(r.Recent) < 2 {
		return 0
	}
	return r.Recent[len(r.Recent)-1] - r.Recent[0]
}

// Repo persists progress records, keyed by (student, subject).
type Repo interface {
	// Get returns the record, or (nil, nil) when none exists yet.
	Get(ctx context.Context, studentID, subject string) (*Record, error)

	// Put stores the record, replacing any previous one.
	Put(ctx context.Context, rec *Record) error
}

// Service applies completed-session results to progress records.
// Different students' records may be updated concurrently without
// coordination; the single-writer-per-session rule makes updates for one
// (student, subject) pair sequential.
type Service struct {
	repo Repo
	cfg  Config
}

// NewService creates a progress service.
func NewService(repo Repo, cfg Config) *Service {
	if cfg.WindowSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{repo: repo, cfg: cfg}
}

// Config returns the scoring configuration.
func (s *Service) Config() Config { return s.cfg }

// Apply folds one completed session's score and point award into the
// student's record and returns the updated record.
func (s *Service) Apply(ctx context.Context, studentID, subject string, score float64, points int) (*Record, error) {
	rec, err := s.repo.Get(ctx, studentID, subject)
	if err != nil {
		return nil, fmt.Errorf("load progress record: %w", err)
	}
	if rec == nil {
		rec = &Record{StudentID: studentID, Subject: subject}
	}

	rec.Points += points
	rec.Sessions++
	rec.Recent = append(rec.Recent, score)
	if len(rec.Recent) > s.cfg.WindowSize {
		rec.Recent = rec.Recent[len(rec.Recent)-s.cfg.WindowSize:]
	}

	// The tier always follows the rolling average, never the last score
	// alone, so one bad session cannot drop a student a tier by itself.
	rec.Average = mean(rec.Recent)
	rec.Tier = TierFor(rec.Average, s.cfg)
	rec.UpdatedAt = time.Now()

	if err := s.repo.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store progress record: %w", err)
	}
	return rec, nil
}

// Snapshot returns the current record, or a zero-valued record when the
// student has no history for the subject.
func (s *Service) Snapshot(ctx context.Context, studentID, subject string) (*Record, error) {
	rec, err := s.repo.Get(ctx, studentID, subject)
	if err != nil {
		return nil, fmt.Errorf("load progress record: %w", err)
	}
	if rec == nil {
		rec = &Record{
			StudentID: studentID,
			Subject:   subject,
			Tier:      TierBeginner,
		}
	}
	return rec, nil
}

// FullyMastered reports whether every recorded session for the subject
// scored 100%. Used for the already-completed short circuit at session
// start.
func (s *Service) FullyMastered(ctx context.Context, studentID, subject string) bool {
	rec, err := s.repo.Get(ctx, studentID, subject)
	if err != nil || rec == nil || rec.Sessions == 0 {
		return false
	}
	return rec.Average == 100
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
