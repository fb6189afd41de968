package progress

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo for tests and local runs.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepo creates an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]*Record)}
}

func (m *MemoryRepo) Get(_ context.Context, studentID, subject string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[studentID+"/"+subject]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Recent = append([]float64(nil), rec.Recent...)
	return &cp, nil
}

func (m *MemoryRepo) Put(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Recent = append([]float64(nil), rec.Recent...)
	m.records[rec.StudentID+"/"+rec.Subject] = &cp
	return nil
}
