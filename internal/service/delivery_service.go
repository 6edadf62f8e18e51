package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/config"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/exam"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/repository"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrExamNotAvailable  = errors.New("exam is not available")
	ErrAttemptNotFound   = errors.New("no attempt for this exam")
	ErrAttemptCompleted  = errors.New("attempt is already completed")
	ErrAttemptInProgress = errors.New("attempt is still in progress")
	ErrSubmitInProgress  = errors.New("a submission is already being graded")
	ErrStaleAttempt      = errors.New("submission belongs to a superseded attempt")
	ErrResultNotReady    = errors.New("result is not ready")
)

// submitGuardTTL bounds how long a crashed submission can block a retry.
const submitGuardTTL = 30 * time.Second

// DeliveryService handles the student side: starting, resuming, answering,
// submitting and retaking exams.
type DeliveryService struct {
	attemptRepo *repository.AttemptRepository
	answerRepo  *repository.AnswerRepository
	examSvc     *ExamService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(
	attemptRepo *repository.AttemptRepository,
	answerRepo *repository.AnswerRepository,
	examSvc *ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *DeliveryService {
	return &DeliveryService{
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		examSvc:     examSvc,
		rdb:         rdb,
		log:         log.With().Str("component", "delivery_service").Logger(),
	}
}

// AvailableExam is a published exam as shown in the student's list, overlaid
// with that student's attempt status when one exists.
type AvailableExam struct {
	model.Exam
	AttemptStatus *model.AttemptStatus `json:"attempt_status,omitempty"`
	AttemptNumber int                  `json:"attempt_number,omitempty"`
	Score         *int                 `json:"score,omitempty"`
	Total         *int                 `json:"total,omitempty"`
}

// ListAvailable returns all published exams with the student's own attempt
// status folded in.
func (s *DeliveryService) ListAvailable(ctx context.Context, studentID int) ([]AvailableExam, error) {
	exams, err := s.examSvc.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}

	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attemptMap := make(map[uuid.UUID]*model.ExamAttempt, len(attempts))
	for i := range attempts {
		attemptMap[attempts[i].ExamID] = &attempts[i]
	}

	available := make([]AvailableExam, 0, len(exams))
	for _, e := range exams {
		entry := AvailableExam{Exam: e}
		if a, ok := attemptMap[e.ID]; ok {
			entry.AttemptStatus = &a.Status
			entry.AttemptNumber = a.AttemptNumber
			entry.Score = a.Score
			entry.Total = a.Total
		}
		available = append(available, entry)
	}
	return available, nil
}

// StartAttempt creates (or returns) the student's attempt for a published
// exam. Starting is idempotent: refreshing or switching devices lands on the
// same attempt and the same running clock.
func (s *DeliveryService) StartAttempt(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	// The payload cache is the availability check: only published exams live there.
	if _, err := s.examSvc.GetExamPayload(ctx, examID); err != nil {
		if errors.Is(err, ErrPayloadNotCached) {
			return nil, ErrExamNotAvailable
		}
		return nil, err
	}

	existing, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}

	if existing != nil {
		s.cacheAttemptClock(ctx, existing)
		return existing, nil
	}

	attempt := &model.ExamAttempt{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.AttemptStatusInProgress,
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start collapsed into an existing row.
			existing, fetchErr := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			s.cacheAttemptClock(ctx, existing)
			return existing, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheAttemptClock(ctx, attempt)

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Msg("Attempt started")
	return attempt, nil
}

// cacheAttemptClock stores the attempt's start time and number so state reads
// never touch PostgreSQL on the hot path.
func (s *DeliveryService) cacheAttemptClock(ctx context.Context, a *model.ExamAttempt) {
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptStartKey(a.ExamID.String(), a.StudentID), a.StartedAt.Unix(), 0)
	pipe.Set(ctx, config.CacheKey.AttemptNumberKey(a.ExamID.String(), a.StudentID), a.AttemptNumber, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache attempt clock")
	}
}

// GetState retrieves the resume view: autosaved answers plus authoritative
// remaining time computed from the cached start timestamp.
func (s *DeliveryService) GetState(ctx context.Context, examID uuid.UUID, studentID int) (*model.AttemptState, error) {
	answers, err := s.autosavedAnswers(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	durationStr, err := s.rdb.Get(ctx, config.CacheKey.ExamDurationKey(examID.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrExamNotAvailable
		}
		return nil, fmt.Errorf("get exam duration: %w", err)
	}
	durationSeconds, err := strconv.Atoi(durationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid duration in cache: %w", err)
	}

	startTimeUnix, attemptNumber, status, err := s.attemptClock(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	startTime := time.Unix(startTimeUnix, 0)
	endTime := startTime.Add(time.Duration(durationSeconds) * time.Second)
	remaining := time.Until(endTime)
	if remaining < 0 {
		remaining = 0
	}

	// The cached clock does not know about grading; a cached result for this
	// attempt is the authoritative completion signal.
	if cached, err := s.cachedResult(ctx, examID, studentID); err == nil && cached.AttemptNumber == attemptNumber {
		status = model.AttemptStatusCompleted
		remaining = 0
	}

	return &model.AttemptState{
		ExamID:           examID,
		StudentID:        studentID,
		AttemptNumber:    attemptNumber,
		Status:           status,
		AutosavedAnswers: answers,
		RemainingSeconds: int(remaining.Seconds()),
	}, nil
}

// attemptClock reads the attempt's start time and number from cache, falling
// back to PostgreSQL and self-healing the cache on a miss.
func (s *DeliveryService) attemptClock(ctx context.Context, examID uuid.UUID, studentID int) (int64, int, model.AttemptStatus, error) {
	startKey := config.CacheKey.AttemptStartKey(examID.String(), studentID)
	numberKey := config.CacheKey.AttemptNumberKey(examID.String(), studentID)

	vals, err := s.rdb.MGet(ctx, startKey, numberKey).Result()
	if err != nil {
		return 0, 0, "", fmt.Errorf("redis error getting attempt clock: %w", err)
	}

	startRaw, _ := vals[0].(string)
	numberRaw, _ := vals[1].(string)

	if startRaw != "" && numberRaw != "" {
		startTimeUnix, err1 := strconv.ParseInt(startRaw, 10, 64)
		attemptNumber, err2 := strconv.Atoi(numberRaw)
		if err1 == nil && err2 == nil {
			return startTimeUnix, attemptNumber, model.AttemptStatusInProgress, nil
		}
	}

	// Cache miss (evicted or never warmed). PostgreSQL is the source of truth.
	attempt, dbErr := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if dbErr != nil {
		if errors.Is(dbErr, pgx.ErrNoRows) {
			return 0, 0, "", ErrAttemptNotFound
		}
		return 0, 0, "", fmt.Errorf("attempt not found in cache or db: %w", dbErr)
	}

	s.cacheAttemptClock(ctx, attempt)
	return attempt.StartedAt.Unix(), attempt.AttemptNumber, attempt.Status, nil
}

// autosavedAnswers reads the autosave hash, falling back to the durable
// copies in attempt_answers when the hash is gone. An evicted hash must never
// turn a half-answered attempt into a blank paper.
func (s *DeliveryService) autosavedAnswers(ctx context.Context, examID uuid.UUID, studentID int) (map[string]string, error) {
	hashKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID)
	answers, err := s.rdb.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get autosaved answers: %w", err)
	}
	if len(answers) > 0 {
		return answers, nil
	}

	answers, err = s.answerRepo.MapByAttempt(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("load persisted answers: %w", err)
	}
	if len(answers) > 0 {
		if err := s.rdb.HSet(ctx, hashKey, answers).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to re-warm autosave hash")
		}
	}
	return answers, nil
}

// RecordAnswer autosaves a single answer: write-through to the Redis hash,
// then queue the durable upsert for the background worker.
func (s *DeliveryService) RecordAnswer(ctx context.Context, examID uuid.UUID, studentID int, questionID uuid.UUID, answer string) error {
	hashKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID)
	if err := s.rdb.HSet(ctx, hashKey, questionID.String(), answer).Err(); err != nil {
		return fmt.Errorf("autosave answer: %w", err)
	}

	payload, err := json.Marshal(repository.AnswerRecord{
		ExamID:     examID,
		StudentID:  studentID,
		QuestionID: questionID,
		Answer:     answer,
	})
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue answer: %w", err)
	}
	return nil
}

// Submit grades the attempt exactly once. A manual submission racing the
// timeout auto-submission is serialized by a Redis NX guard; the loser sees
// ErrSubmitInProgress and should fetch the result instead. attemptNumber is
// the attempt the caller believes it is submitting; a mismatch after a retake
// returns ErrStaleAttempt and grades nothing.
func (s *DeliveryService) Submit(ctx context.Context, examID uuid.UUID, studentID, attemptNumber int, finalAnswers map[string]string) (*model.ExamResult, error) {
	attempt, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status == model.AttemptStatusCompleted {
		return nil, ErrAttemptCompleted
	}
	if attempt.AttemptNumber != attemptNumber {
		return nil, ErrStaleAttempt
	}

	// The row may lag the truth: the durable write happens in the background,
	// so a cached result for this attempt means grading already happened.
	if cached, err := s.cachedResult(ctx, examID, studentID); err == nil && cached.AttemptNumber == attempt.AttemptNumber {
		return nil, ErrAttemptCompleted
	}

	guardKey := config.CacheKey.SubmitGuardKey(examID.String(), studentID)
	acquired, err := s.rdb.SetNX(ctx, guardKey, attemptNumber, submitGuardTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit guard: %w", err)
	}
	if !acquired {
		return nil, ErrSubmitInProgress
	}
	defer s.rdb.Del(ctx, guardKey)

	// Merge: autosaved answers first, explicit final answers win.
	answers, err := s.autosavedAnswers(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	for qid, answer := range finalAnswers {
		answers[qid] = answer
	}

	questions, err := s.gradableQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}

	result := exam.Grade(questions, answers)
	result.ExamID = examID
	result.AttemptNumber = attempt.AttemptNumber

	if err := s.storeResult(ctx, examID, studentID, &result); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("attempt", attempt.AttemptNumber).
		Int("score", result.Score).
		Int("total", result.Total).
		Msg("Attempt graded")
	return &result, nil
}

// gradableQuestions rebuilds full questions from the cached payload and
// answer key, so grading never touches PostgreSQL.
func (s *DeliveryService) gradableQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	payload, err := s.examSvc.GetExamPayload(ctx, examID)
	if err != nil {
		return nil, err
	}
	answerKey, err := s.examSvc.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, len(payload.Questions))
	for i, q := range payload.Questions {
		questions[i] = model.Question{
			ID:            q.ID,
			ExamID:        examID,
			QuestionText:  q.QuestionText,
			QuestionType:  q.QuestionType,
			Options:       q.Options,
			CorrectAnswer: answerKey[q.ID.String()],
			Position:      q.Position,
		}
	}
	return questions, nil
}

// storeResult caches the graded result for immediate reads and queues the
// durable write for the background worker.
func (s *DeliveryService) storeResult(ctx context.Context, examID uuid.UUID, studentID int, result *model.ExamResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.AttemptResultKey(examID.String(), studentID), resultJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}

	item, err := json.Marshal(repository.CompletedAttempt{
		ExamID:        examID,
		StudentID:     studentID,
		AttemptNumber: result.AttemptNumber,
		Score:         result.Score,
		Total:         result.Total,
		Result:        result,
	})
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item).Err(); err != nil {
		return fmt.Errorf("queue completion: %w", err)
	}
	return nil
}

// cachedResult reads the graded result from Redis. Returns redis.Nil when
// none is cached.
func (s *DeliveryService) cachedResult(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AttemptResultKey(examID.String(), studentID)).Bytes()
	if err != nil {
		return nil, err
	}
	var result model.ExamResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetResult returns the graded result of the student's latest completed
// attempt, preferring the cache over PostgreSQL.
func (s *DeliveryService) GetResult(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error) {
	result, err := s.cachedResult(ctx, examID, studentID)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Msg("Cached result unreadable, falling back to db")
	}

	result, err = s.attemptRepo.GetResult(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotReady
		}
		return nil, fmt.Errorf("get stored result: %w", err)
	}
	return result, nil
}

// Retake reopens a completed attempt: the attempt number increments, the
// clock restarts, and every trace of the previous answers is cleared.
func (s *DeliveryService) Retake(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	if _, err := s.examSvc.GetExamPayload(ctx, examID); err != nil {
		if errors.Is(err, ErrPayloadNotCached) {
			return nil, ErrExamNotAvailable
		}
		return nil, err
	}

	attemptNumber, err := s.attemptRepo.Reset(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either no attempt exists or it is still in progress.
			if _, getErr := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID); getErr != nil {
				return nil, ErrAttemptNotFound
			}
			return nil, ErrAttemptInProgress
		}
		return nil, fmt.Errorf("reset attempt: %w", err)
	}

	if err := s.answerRepo.DeleteByAttempt(ctx, examID, studentID); err != nil {
		return nil, fmt.Errorf("clear persisted answers: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.StudentAnswersKey(examID.String(), studentID))
	pipe.Del(ctx, config.CacheKey.AttemptResultKey(examID.String(), studentID))
	pipe.Del(ctx, config.CacheKey.SubmitGuardKey(examID.String(), studentID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("clear attempt cache: %w", err)
	}

	attempt, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	s.cacheAttemptClock(ctx, attempt)

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("attempt", attemptNumber).
		Msg("Attempt reopened for retake")
	return attempt, nil
}

// ListResults retrieves the per-student outcomes of an exam for its author.
func (s *DeliveryService) ListResults(ctx context.Context, examID uuid.UUID, authorID, page, perPage int) ([]repository.AttemptResultRow, *response.Pagination, error) {
	e, err := s.examSvc.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	if e.AuthorID != authorID {
		return nil, nil, ErrNotExamAuthor
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	rows, total, err := s.attemptRepo.ListByExam(ctx, examID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if rows == nil {
		rows = []repository.AttemptResultRow{}
	}

	return rows, response.NewPagination(page, perPage, int(total)), nil
}
