package progress

import "math"

// Summary is the scoring result of one completed session.
type Summary struct {
	Score          float64 `json:"score"`
	Passed         bool    `json:"passed"`
	Points         int     `json:"pointsEarned"`
	CorrectCount   int     `json:"correctCount"`
	TotalQuestions int     `json:"totalQuestions"`
}

// Summarize scores a completed session. It is a pure function of the
// closed question records: correct is the count of questions closed as
// correct, answered the count that received at least one attempt, and
// total the full question list length (skipped questions count against
// the score).
//
// Practice sessions never fail; graded sessions pass at the configured
// threshold.
func Summarize(correct, answered, total int, graded bool, cfg Config) Summary {
	var score float64
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}
	score = math.Round(score*100) / 100

	return Summary{
		Score:          score,
		Passed:         !graded || score >= cfg.PassThreshold,
		Points:         cfg.PointsPerQuestion*answered + int(float64(cfg.PointsPerScoreUnit)*score),
		CorrectCount:   correct,
		TotalQuestions: total,
	}
}
