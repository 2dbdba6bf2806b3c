package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-room-service/internal/domain"
)

// ExamStore is an in-memory implementation of app.ExamStore. It doubles as an
// ExamLoader so the cache layer can sit in front of it in no-Postgres setups.
type ExamStore struct {
	mu    sync.RWMutex
	exams map[string]domain.Exam
}

func NewExamStore() *ExamStore {
	return &ExamStore{exams: make(map[string]domain.Exam)}
}

// NewExamStoreWith seeds the store, useful for demos without a database.
func NewExamStoreWith(exams map[string]domain.Exam) *ExamStore {
	s := NewExamStore()
	for id, exam := range exams {
		s.exams[id] = exam
	}
	return s
}

func (s *ExamStore) SaveExam(_ context.Context, exam domain.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[exam.ID] = exam
	return nil
}

func (s *ExamStore) DeleteExam(_ context.Context, examID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exams, examID)
	return nil
}

func (s *ExamStore) ListExamsByOwner(_ context.Context, ownerID string) ([]domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Exam, 0)
	for _, exam := range s.exams {
		if exam.OwnerID == ownerID {
			out = append(out, exam)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *ExamStore) LoadExam(_ context.Context, examID string) (domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if exam, ok := s.exams[examID]; ok {
		return exam, nil
	}
	return domain.Exam{}, domain.ErrExamNotFound
}
