package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
)

func TestExamCreateFillsIDsAndDefaults(t *testing.T) {
	ctx := context.Background()
	service, _ := newExamTestService()

	created, err := service.Create(ctx, "owner-1", domain.Exam{
		Title: "Capitals",
		Questions: []domain.Question{
			{Prompt: "Capital of France?", Options: []domain.Option{
				{Text: "Paris", Correct: true},
				{Text: "Lyon", Correct: false},
			}},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.OwnerID != "owner-1" {
		t.Fatalf("expected ids filled in, got %+v", created)
	}
	q := created.Questions[0]
	if q.ID == "" || q.Points != 1 || q.Options[0].ID == "" {
		t.Fatalf("expected question normalized, got %+v", q)
	}
}

func TestExamUpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	service, _ := newExamTestService()

	created, err := service.Create(ctx, "owner-1", domain.Exam{Title: "V1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Prime the cache with the original version.
	if _, err := service.Get(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	created.Title = "V2"
	if err := service.Update(ctx, "owner-1", created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := service.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "V2" {
		t.Fatalf("expected updated title to be served, got %q", got.Title)
	}
}

func TestExamOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	service, _ := newExamTestService()

	created, err := service.Create(ctx, "owner-1", domain.Exam{Title: "Mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := service.Update(ctx, "owner-2", created); err != domain.ErrNotOwner {
		t.Fatalf("expected ErrNotOwner on update, got %v", err)
	}
	if err := service.Delete(ctx, "owner-2", created.ID); err != domain.ErrNotOwner {
		t.Fatalf("expected ErrNotOwner on delete, got %v", err)
	}
	if err := service.Delete(ctx, "owner-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.Get(ctx, created.ID); err != domain.ErrExamNotFound {
		t.Fatalf("expected ErrExamNotFound after delete, got %v", err)
	}
}

func TestExamListScopedToOwner(t *testing.T) {
	ctx := context.Background()
	service, _ := newExamTestService()

	if _, err := service.Create(ctx, "owner-1", domain.Exam{Title: "A"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.Create(ctx, "owner-2", domain.Exam{Title: "B"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	exams, err := service.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(exams) != 1 || exams[0].Title != "A" {
		t.Fatalf("expected only owner-1 exams, got %+v", exams)
	}
}

func newExamTestService() (*app.ExamService, *memory.ExamStore) {
	store := memory.NewExamStore()
	repo := memory.NewExamRepository(store, 5*time.Minute)
	return app.NewExamService(repo, store), store
}
