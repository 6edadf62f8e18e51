package repository

import (
	"context"
	"fmt"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by position.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, question_type, options, correct_answer, position
		 FROM questions WHERE exam_id = $1
		 ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.QuestionType,
			&q.Options, &q.CorrectAnswer, &q.Position); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceAll atomically replaces the question list of an exam. The editor
// always submits the full ordered list, so delete-and-reinsert inside one
// transaction keeps positions and identities consistent.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete old questions: %w", err)
	}

	if len(questions) > 0 {
		rows := make([][]interface{}, len(questions))
		for i, q := range questions {
			rows[i] = []interface{}{q.ID, examID, q.QuestionText, q.QuestionType, q.Options, q.CorrectAnswer, i}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"questions"},
			[]string{"id", "exam_id", "question_text", "question_type", "options", "correct_answer", "position"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}

	return tx.Commit(ctx)
}
