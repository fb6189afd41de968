package question

import (
	"context"
	"sync"
)

// Store is a read-only view onto previously generated questions.
// Implementations must return at most count questions matching the
// subject and tier; questions are immutable once created.
type Store interface {
	FetchQuestions(ctx context.Context, subject string, tier Tier, count int) ([]Question, error)
}

// MemoryStore is an in-memory Store used in tests and for local runs
// without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	questions []Question
}

// NewMemoryStore creates a MemoryStore preloaded with the given questions.
func NewMemoryStore(questions ...Question) *MemoryStore {
	s := &MemoryStore{}
	s.Put(questions...)
	return s
}

// Put adds questions to the store.
func (s *MemoryStore) Put(questions ...Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, questions...)
}

// FetchQuestions returns up to count questions for the subject and tier,
// in insertion order.
func (s *MemoryStore) FetchQuestions(_ context.Context, subject string, tier Tier, count int) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Question
	for _, q := range s.questions {
		if equalFold(q.Subject, subject) && q.Tier == tier {
			out = append(out, q)
			if len(out) == count {
				break
			}
		}
	}
	return out, nil
}
