package question

import "fmt"

// Tier is the ordered difficulty tier a question is authored at.
type Tier int

const (
	TierBasic Tier = iota + 1
	TierIntermediate
	TierAdvanced
)

// Known reports whether t is one of the defined tiers.
func (t Tier) Known() bool {
	return t >= TierBasic && t <= TierAdvanced
}

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierIntermediate:
		return "intermediate"
	case TierAdvanced:
		return "advanced"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier accepts tier names ("basic", "intermediate", "advanced") as
// well as the legacy grade-style numbering 3/4/5 used by earlier question
// batches.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "basic", "3":
		return TierBasic, nil
	case "intermediate", "4":
		return TierIntermediate, nil
	case "advanced", "5":
		return TierAdvanced, nil
	}
	return 0, fmt.Errorf("unknown difficulty tier: %q", s)
}

// Choice is a single labeled option of a multiple-choice question.
type Choice struct {
	Key  string `json:"key"`  // e.g. "A"
	Text string `json:"text"`
}

// Question is an immutable, previously generated assessment item.
// For multiple-choice questions Answer holds the key of the correct
// choice; for free-text questions it holds the canonical answer text.
type Question struct {
	ID          string   `json:"id"`
	Subject     string   `json:"subject"`
	Tier        Tier     `json:"tier"`
	Prompt      string   `json:"prompt"`
	Choices     []Choice `json:"choices,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Hints       []string `json:"hints,omitempty"`
}

// MultipleChoice reports whether the question has labeled choices.
func (q *Question) MultipleChoice() bool {
	return len(q.Choices) > 0
}

// CorrectChoice returns the choice matching the canonical answer key,
// or nil for free-text questions.
func (q *Question) CorrectChoice() *Choice {
	for i := range q.Choices {
		if equalFold(q.Choices[i].Key, q.Answer) {
			return &q.Choices[i]
		}
	}
	return nil
}

// RevealText is the answer as shown to the student after a reveal:
// "B) 42" for multiple choice, the canonical text otherwise.
func (q *Question) RevealText() string {
	if c := q.CorrectChoice(); c != nil {
		return fmt.Sprintf("%s) %s", c.Key, c.Text)
	}
	return q.Answer
}
