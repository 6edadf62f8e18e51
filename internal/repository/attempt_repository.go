package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptResultRow combines a student's identity with their attempt outcome,
// for the author-facing results listing.
type AttemptResultRow struct {
	StudentID  int                 `json:"student_id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Score      *int                `json:"score"`
	Total      *int                `json:"total"`
	Status     model.AttemptStatus `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at"`
}

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByExamAndStudent retrieves the attempt for a specific exam-student pair.
func (r *AttemptRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, attempt_number, status, started_at, finished_at, score, total
		 FROM exam_attempts
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.AttemptNumber, &a.Status,
		&a.StartedAt, &a.FinishedAt, &a.Score, &a.Total)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attempt (student starts the exam). The conflict clause
// makes concurrent starts collapse into the existing row: pgx.ErrNoRows on
// the RETURNING scan signals an attempt already existed.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, student_id, attempt_number, status)
		 VALUES ($1, $2, 1, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, attempt_number, started_at`,
		a.ExamID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.AttemptNumber, &a.StartedAt)
}

// Complete marks an attempt as completed with its graded result.
func (r *AttemptRepository) Complete(ctx context.Context, examID uuid.UUID, studentID, attemptNumber, score, total int, result *model.ExamResult) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, score = $2, total = $3, result = $4, finished_at = NOW()
		 WHERE exam_id = $5 AND student_id = $6 AND attempt_number = $7`,
		model.AttemptStatusCompleted, score, total, result, examID, studentID, attemptNumber)
	return err
}

// CompletedAttempt carries one graded outcome for batched persistence.
type CompletedAttempt struct {
	ExamID        uuid.UUID         `json:"exam_id"`
	StudentID     int               `json:"student_id"`
	AttemptNumber int               `json:"attempt_number"`
	Score         int               `json:"score"`
	Total         int               `json:"total"`
	Result        *model.ExamResult `json:"result"`
}

// CompleteBatch persists many graded outcomes in one round trip via UNNEST.
func (r *AttemptRepository) CompleteBatch(ctx context.Context, items []CompletedAttempt) error {
	if len(items) == 0 {
		return nil
	}

	examIDs := make([]uuid.UUID, len(items))
	studentIDs := make([]int, len(items))
	attemptNumbers := make([]int, len(items))
	scores := make([]int, len(items))
	totals := make([]int, len(items))
	results := make([][]byte, len(items))
	for i, item := range items {
		examIDs[i] = item.ExamID
		studentIDs[i] = item.StudentID
		attemptNumbers[i] = item.AttemptNumber
		scores[i] = item.Score
		totals[i] = item.Total
		payload, err := json.Marshal(item.Result)
		if err != nil {
			return err
		}
		results[i] = payload
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts a
		 SET status = $1, score = t.score, total = t.total, result = t.result, finished_at = NOW()
		 FROM UNNEST($2::uuid[], $3::int[], $4::int[], $5::int[], $6::int[], $7::jsonb[])
		      AS t(exam_id, student_id, attempt_number, score, total, result)
		 WHERE a.exam_id = t.exam_id
		   AND a.student_id = t.student_id
		   AND a.attempt_number = t.attempt_number`,
		model.AttemptStatusCompleted, examIDs, studentIDs, attemptNumbers, scores, totals, results)
	return err
}

// GetResult loads the stored graded result of a completed attempt.
func (r *AttemptRepository) GetResult(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error) {
	var result model.ExamResult
	err := r.pool.QueryRow(ctx,
		`SELECT result FROM exam_attempts
		 WHERE exam_id = $1 AND student_id = $2 AND status = $3 AND result IS NOT NULL`,
		examID, studentID, model.AttemptStatusCompleted,
	).Scan(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reset reopens a completed attempt for a retake: attempt number increments,
// timer restarts, score and result clear. Returns the new attempt number.
func (r *AttemptRepository) Reset(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	var attemptNumber int
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET attempt_number = attempt_number + 1,
		     status = $1,
		     started_at = NOW(),
		     finished_at = NULL,
		     score = NULL,
		     total = NULL,
		     result = NULL
		 WHERE exam_id = $2 AND student_id = $3 AND status = $4
		 RETURNING attempt_number`,
		model.AttemptStatusInProgress, examID, studentID, model.AttemptStatusCompleted,
	).Scan(&attemptNumber)
	if err != nil {
		return 0, err
	}
	return attemptNumber, nil
}

// ListByStudent retrieves all attempts for a given student.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, attempt_number, status, started_at, finished_at, score, total
		 FROM exam_attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.AttemptNumber, &a.Status,
			&a.StartedAt, &a.FinishedAt, &a.Score, &a.Total); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListByExam retrieves student results for an exam with pagination.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]AttemptResultRow, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1`, examID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, a.score, a.total, a.status, a.started_at, a.finished_at
		 FROM exam_attempts a
		 JOIN users u ON a.student_id = u.id
		 WHERE a.exam_id = $1
		 ORDER BY u.name ASC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResultRow
	for rows.Next() {
		var row AttemptResultRow
		if err := rows.Scan(&row.StudentID, &row.Name, &row.Email, &row.Score, &row.Total,
			&row.Status, &row.StartedAt, &row.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}
