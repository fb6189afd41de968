package question

import "fmt"

// HintAt returns the hint to show after the (level+1)-th wrong attempt.
// Authored hints take priority; when the question carries none (or not
// enough), a generic escalating hint is synthesized so the ladder never
// runs dry.
func HintAt(q *Question, level int) string {
	if level < 0 {
		level = 0
	}
	if level < len(q.Hints) && q.Hints[level] != "" {
		return q.Hints[level]
	}
	return genericHint(q, level)
}

// genericHint synthesizes an escalating hint when no authored hint exists
// at the requested level.
func genericHint(q *Question, level int) string {
	switch level {
	case 0:
		return fmt.Sprintf("Not quite. Read the question again carefully and pay attention to exactly what it asks about %s.", q.Subject)
	case 1:
		if q.MultipleChoice() {
			return "Still not it. Try ruling out the choices you are sure are wrong before picking between the rest."
		}
		return "Still not it. Break the problem into smaller steps and check each step before answering."
	default:
		return "Last try. Think about which concept this question is really testing, and answer for that concept."
	}
}
