package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRecord is a single autosaved answer headed for persistence.
type AnswerRecord struct {
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  int       `json:"student_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

// AnswerRepository handles autosaved answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// UpsertBatch saves a batch of answers in one round trip via UNNEST,
// overwriting any previous value for the same question.
func (r *AnswerRepository) UpsertBatch(ctx context.Context, recs []AnswerRecord) error {
	if len(recs) == 0 {
		return nil
	}

	examIDs := make([]uuid.UUID, len(recs))
	studentIDs := make([]int, len(recs))
	questionIDs := make([]uuid.UUID, len(recs))
	answers := make([]string, len(recs))
	for i, rec := range recs {
		examIDs[i] = rec.ExamID
		studentIDs[i] = rec.StudentID
		questionIDs[i] = rec.QuestionID
		answers[i] = rec.Answer
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (exam_id, student_id, question_id, answer, updated_at)
		 SELECT t.exam_id, t.student_id, t.question_id, t.answer, NOW()
		 FROM UNNEST($1::uuid[], $2::int[], $3::uuid[], $4::text[])
		      AS t(exam_id, student_id, question_id, answer)
		 ON CONFLICT (exam_id, student_id, question_id)
		 DO UPDATE SET answer = EXCLUDED.answer, updated_at = NOW()`,
		examIDs, studentIDs, questionIDs, answers)
	return err
}

// MapByAttempt loads the persisted answers of an attempt keyed by question ID.
func (r *AnswerRepository) MapByAttempt(ctx context.Context, examID uuid.UUID, studentID int) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, answer FROM attempt_answers
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var questionID uuid.UUID
		var answer string
		if err := rows.Scan(&questionID, &answer); err != nil {
			return nil, err
		}
		answers[questionID.String()] = answer
	}
	return answers, rows.Err()
}

// DeleteByAttempt removes the persisted answers of an attempt. Used when a
// student retakes an exam.
func (r *AnswerRepository) DeleteByAttempt(ctx context.Context, examID uuid.UUID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM attempt_answers WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID)
	return err
}
