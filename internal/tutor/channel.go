package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/studyloop/studyloop/internal/llm"
	"github.com/studyloop/studyloop/internal/question"
)

// Config configures the tutoring channel.
type Config struct {
	// Timeout bounds a single reply generation.
	Timeout time.Duration

	// MaxTokens bounds the reply length.
	MaxTokens int

	// FallbackReply is returned when generation times out or fails.
	FallbackReply string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:       10 * time.Second,
		MaxTokens:     400,
		FallbackReply: "I couldn't come up with a good explanation right now. Try breaking the question into smaller steps, or use a hint.",
	}
}

// Channel generates tutoring replies scoped to a single question.
// It is advisory only: replies carry no score or attempt cost, and while
// the question is ungraded the reply must never state the canonical
// answer. A nil provider degrades to static guidance.
type Channel struct {
	provider llm.Provider
	cfg      Config
}

// NewChannel creates a tutoring channel. provider may be nil, in which
// case replies fall back to the question's hint ladder.
func NewChannel(provider llm.Provider, cfg Config) *Channel {
	return &Channel{provider: provider, cfg: cfg}
}

// Reply appends the student's message to the exchange, generates a tutor
// reply, appends it, and returns it. Generation failures and timeouts
// degrade to the fallback reply; the exchange is never left without a
// tutor turn for a student turn.
func (c *Channel) Reply(ctx context.Context, q *question.Question, ex *Exchange, revealed bool, message string) string {
	ex.Append(SpeakerStudent, message)

	reply := c.generate(ctx, q, ex, revealed)
	if !revealed {
		reply = c.redact(reply, q)
	}

	ex.Append(SpeakerTutor, reply)
	return reply
}

func (c *Channel) generate(ctx context.Context, q *question.Question, ex *Exchange, revealed bool) string {
	if c.provider == nil {
		return c.offlineReply(q, revealed)
	}

	ctx, cancel := context.WithTimeout(llm.WithPurpose(ctx, "tutor-reply"), c.cfg.Timeout)
	defer cancel()

	res, err := c.provider.Complete(ctx, llm.Prompt{
		System:      c.systemPrompt(q, revealed),
		Turns:       promptTurns(ex),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0.4,
	})
	if err != nil {
		log.Printf("tutor reply generation failed: %v", err)
		return c.cfg.FallbackReply
	}
	reply := strings.TrimSpace(res.Text)
	if reply == "" {
		return c.cfg.FallbackReply
	}
	return reply
}

func (c *Channel) systemPrompt(q *question.Question, revealed bool) string {
	var b strings.Builder
	b.WriteString("You are a patient tutor helping a student with one specific question. ")
	b.WriteString("Keep replies short and guide the student's own reasoning.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", q.Prompt)
	for _, ch := range q.Choices {
		fmt.Fprintf(&b, "  %s) %s\n", ch.Key, ch.Text)
	}
	fmt.Fprintf(&b, "Correct answer: %s\n", q.RevealText())
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n", q.Explanation)
	}
	if revealed {
		b.WriteString("\nThe answer has been revealed to the student; you may discuss it freely.")
	} else {
		b.WriteString("\nThe student has NOT answered this question yet. Never state the correct answer or make it trivially guessable. Guide, don't tell.")
	}
	return b.String()
}

// redact replaces a reply that leaks the canonical answer while the
// question is still ungraded.
func (c *Channel) redact(reply string, q *question.Question) string {
	if leaksAnswer(reply, q) {
		return "I can't give the answer away, but let's work it out together. What part of the question are you unsure about?"
	}
	return reply
}

// leaksAnswer reports whether the reply contains the canonical answer
// text. Very short answers (single characters, common words) are matched
// conservatively to avoid false positives on choice keys like "A".
func leaksAnswer(reply string, q *question.Question) bool {
	lower := strings.ToLower(reply)

	answer := strings.ToLower(strings.TrimSpace(q.Answer))
	if c := q.CorrectChoice(); c != nil {
		answer = strings.ToLower(strings.TrimSpace(c.Text))
	}
	if len(answer) < 2 {
		return false
	}
	return strings.Contains(lower, answer)
}

// offlineReply is the static guidance used when no provider is configured.
func (c *Channel) offlineReply(q *question.Question, revealed bool) string {
	if revealed {
		return fmt.Sprintf("The answer was %s. %s", q.RevealText(), q.Explanation)
	}
	return question.HintAt(q, 0)
}

func promptTurns(ex *Exchange) []llm.Turn {
	turns := make([]llm.Turn, 0, len(ex.Turns))
	for _, t := range ex.Turns {
		role := llm.RoleUser
		if t.Speaker == SpeakerTutor {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Turn{Role: role, Text: t.Message})
	}
	return turns
}

// hintSchema is the structured output contract for generated hints.
var hintSchema = &llm.Schema{
	Name:        "question-hint",
	Description: "A single escalating hint for the current question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint": map[string]any{
				"type":        "string",
				"description": "A hint that guides without revealing the answer",
			},
		},
		"required":             []any{"hint"},
		"additionalProperties": false,
	},
}

// Hint generates a question-specific hint for the given escalation level.
// Returns an error when no provider is configured or generation fails;
// callers fall back to the authored/synthesized hint ladder.
func (c *Channel) Hint(ctx context.Context, q *question.Question, level int) (string, error) {
	if c.provider == nil {
		return "", fmt.Errorf("no generation provider configured")
	}

	ctx, cancel := context.WithTimeout(llm.WithPurpose(ctx, "question-hint"), c.cfg.Timeout)
	defer cancel()

	res, err := c.provider.Complete(ctx, llm.Prompt{
		System: c.systemPrompt(q, false),
		Turns: []llm.Turn{{
			Role: llm.RoleUser,
			Text: fmt.Sprintf("The student has answered wrong %d time(s). Give hint number %d, slightly more revealing than the previous one, but never the answer itself.", level+1, level+1),
		}},
		Schema:    hintSchema,
		MaxTokens: 200,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Hint string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(res.Text), &out); err != nil {
		return "", fmt.Errorf("decode hint: %w", err)
	}
	if leaksAnswer(out.Hint, q) {
		return "", fmt.Errorf("generated hint leaks the answer")
	}
	return out.Hint, nil
}
