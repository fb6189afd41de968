package llm

import "context"

// Provider is the abstraction over text-generation backends used for
// tutor replies and generated hints.
type Provider interface {
	// Complete sends a prompt and returns the generated output.
	// When the prompt carries a Schema, the output is JSON validated
	// against it; otherwise it is plain text.
	Complete(ctx context.Context, p Prompt) (*Result, error)

	// Model returns the model identifier this provider is configured with.
	Model() string
}

// Prompt describes a single generation request.
type Prompt struct {
	// System sets the model's role and constraints.
	System string

	// Turns is the conversation so far. Tutoring sends the full exchange;
	// hint generation sends a single user turn.
	Turns []Turn

	// Schema, when set, requests structured JSON output conforming to it.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature controls randomness, 0.0 (deterministic) to 1.0.
	Temperature float64
}

// Turn is one message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// Role is the sender of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema the output must conform to.
type Schema struct {
	Name        string         // kebab-case, e.g. "question-hint"
	Description string
	Definition  map[string]any // JSON Schema definition
}

// Result is the provider's output.
type Result struct {
	// Text is the generated output: validated JSON when the prompt
	// carried a Schema, plain text otherwise.
	Text string

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// Truncated is true when generation stopped at the MaxTokens limit.
	Truncated bool
}

// Usage tracks token consumption of one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
