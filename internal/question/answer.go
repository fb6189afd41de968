package question

import (
	"strconv"
	"strings"
)

// CheckAnswer compares the student's input against the canonical answer.
// Returns true if the answer is correct.
//
// Normalization rules:
// - Whitespace is trimmed
// - Comparison is case-insensitive
// - For numeric answers: "3.50" matches "3.5", "007" matches "7"
// - For multiple choice: matches against the choice key, the 1-based
//   choice index, or the correct choice's text
func CheckAnswer(studentAnswer string, q *Question) bool {
	studentAnswer = strings.TrimSpace(studentAnswer)
	if studentAnswer == "" {
		return false
	}

	if q.MultipleChoice() {
		return checkChoice(studentAnswer, q)
	}

	canonical := strings.TrimSpace(q.Answer)
	if equalFold(studentAnswer, canonical) {
		return true
	}

	// Numeric equivalence: accept "3.50" for "3.5" and the like.
	if sn, ok := normalizeNumber(studentAnswer); ok {
		if cn, ok := normalizeNumber(canonical); ok {
			return sn == cn
		}
	}
	return false
}

// checkChoice checks the student's answer against the question's choices.
func checkChoice(studentAnswer string, q *Question) bool {
	correct := q.CorrectChoice()
	if correct == nil {
		return false
	}

	// Match by choice key ("A", "b").
	if equalFold(studentAnswer, correct.Key) {
		return true
	}

	// Match by 1-based index.
	if idx, err := strconv.Atoi(studentAnswer); err == nil && idx >= 1 && idx <= len(q.Choices) {
		return equalFold(q.Choices[idx-1].Key, correct.Key)
	}

	// Match by choice text.
	return equalFold(studentAnswer, correct.Text)
}

// normalizeNumber parses s as a number and renders it in canonical form.
// Returns ("", false) when s is not numeric.
func normalizeNumber(s string) (string, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
