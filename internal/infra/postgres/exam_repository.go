package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-room-service/internal/domain"
)

// ExamRepository stores exam JSONB in Postgres. It satisfies both the
// app.ExamStore write interface and the cache layers' ExamLoader.
type ExamRepository struct {
	pool *pgxpool.Pool
}

func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func (r *ExamRepository) LoadExam(ctx context.Context, examID string) (domain.Exam, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM exams WHERE id=$1`, examID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Exam{}, domain.ErrExamNotFound
		}
		return domain.Exam{}, fmt.Errorf("load exam: %w", err)
	}
	var exam domain.Exam
	if err := json.Unmarshal(raw, &exam); err != nil {
		return domain.Exam{}, fmt.Errorf("unmarshal exam: %w", err)
	}
	return exam, nil
}

func (r *ExamRepository) SaveExam(ctx context.Context, exam domain.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exams (id, owner_id, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (id) DO UPDATE SET owner_id=EXCLUDED.owner_id, data=EXCLUDED.data`,
		exam.ID, exam.OwnerID, string(data))
	if err != nil {
		return fmt.Errorf("save exam: %w", err)
	}
	return nil
}

func (r *ExamRepository) DeleteExam(ctx context.Context, examID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id=$1`, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

func (r *ExamRepository) ListExamsByOwner(ctx context.Context, ownerID string) ([]domain.Exam, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM exams WHERE owner_id=$1 ORDER BY data->>'title'`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	exams := make([]domain.Exam, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		var exam domain.Exam
		if err := json.Unmarshal(raw, &exam); err != nil {
			return nil, fmt.Errorf("unmarshal exam: %w", err)
		}
		exams = append(exams, exam)
	}
	return exams, rows.Err()
}
