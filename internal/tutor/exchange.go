package tutor

import "time"

// Speaker identifies who produced a turn of the tutoring exchange.
type Speaker string

const (
	SpeakerStudent Speaker = "student"
	SpeakerTutor   Speaker = "tutor"
	SpeakerSystem  Speaker = "system"
)

// Turn is one message of a tutoring exchange.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Exchange is the free-form dialogue scoped to a single question. It is
// valid only while its question is the session's current question;
// advancing the session discards it.
type Exchange struct {
	QuestionID string
	Turns      []Turn
}

// NewExchange creates an empty exchange for the given question.
func NewExchange(questionID string) *Exchange {
	return &Exchange{QuestionID: questionID}
}

// Append records a turn.
func (e *Exchange) Append(speaker Speaker, message string) {
	e.Turns = append(e.Turns, Turn{Speaker: speaker, Message: message, At: time.Now()})
}

// Len returns the number of turns.
func (e *Exchange) Len() int { return len(e.Turns) }
