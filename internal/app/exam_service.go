package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quiz-room-service/internal/domain"
)

// ExamRepository serves exam reads, typically through a cache layer.
type ExamRepository interface {
	GetExam(ctx context.Context, examID string) (domain.Exam, error)
	Invalidate(ctx context.Context, examID string)
}

// ExamStore persists authored exams.
type ExamStore interface {
	SaveExam(ctx context.Context, exam domain.Exam) error
	DeleteExam(ctx context.Context, examID string) error
	ListExamsByOwner(ctx context.Context, ownerID string) ([]domain.Exam, error)
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	UserByName(ctx context.Context, username string) (domain.User, error)
}

// ExamService contains the exam authoring use cases. Reads go through the
// cached repository; writes hit the store directly and invalidate the cache.
type ExamService struct {
	exams ExamRepository
	store ExamStore
}

func NewExamService(exams ExamRepository, store ExamStore) *ExamService {
	return &ExamService{exams: exams, store: store}
}

// Create persists a new exam owned by ownerID and returns it with ids filled in.
func (s *ExamService) Create(ctx context.Context, ownerID string, exam domain.Exam) (domain.Exam, error) {
	exam.ID = uuid.NewString()
	exam.OwnerID = ownerID
	for i := range exam.Questions {
		normalizeQuestion(&exam.Questions[i])
	}
	if err := s.store.SaveExam(ctx, exam); err != nil {
		return domain.Exam{}, fmt.Errorf("save exam: %w", err)
	}
	return exam, nil
}

// Get loads one exam.
func (s *ExamService) Get(ctx context.Context, examID string) (domain.Exam, error) {
	return s.exams.GetExam(ctx, examID)
}

// List returns every exam owned by ownerID.
func (s *ExamService) List(ctx context.Context, ownerID string) ([]domain.Exam, error) {
	return s.store.ListExamsByOwner(ctx, ownerID)
}

// Update replaces an exam's content. Owner only.
func (s *ExamService) Update(ctx context.Context, ownerID string, exam domain.Exam) error {
	existing, err := s.exams.GetExam(ctx, exam.ID)
	if err != nil {
		return err
	}
	if existing.OwnerID != ownerID {
		return domain.ErrNotOwner
	}
	exam.OwnerID = ownerID
	for i := range exam.Questions {
		normalizeQuestion(&exam.Questions[i])
	}
	if err := s.store.SaveExam(ctx, exam); err != nil {
		return fmt.Errorf("save exam: %w", err)
	}
	s.exams.Invalidate(ctx, exam.ID)
	return nil
}

// Delete removes an exam. Owner only.
func (s *ExamService) Delete(ctx context.Context, ownerID, examID string) error {
	existing, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return err
	}
	if existing.OwnerID != ownerID {
		return domain.ErrNotOwner
	}
	if err := s.store.DeleteExam(ctx, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.exams.Invalidate(ctx, examID)
	return nil
}

func normalizeQuestion(q *domain.Question) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Points == 0 {
		q.Points = 1
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.NewString()
		}
	}
}
