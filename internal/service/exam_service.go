package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/config"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/exam"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/repository"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotExamAuthor    = errors.New("not the author of this exam")
	ErrNoQuestions      = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
	ErrPayloadNotCached = errors.New("exam payload not cached")
)

// ExamService handles exam authoring business logic and Redis caching.
type ExamService struct {
	examRepo           *repository.ExamRepository
	questionRepo       *repository.QuestionRepository
	rdb                *redis.Client
	secondsPerQuestion int
	log                zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	secondsPerQuestion int,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:           examRepo,
		questionRepo:       questionRepo,
		rdb:                rdb,
		secondsPerQuestion: secondsPerQuestion,
		log:                log.With().Str("component", "exam_service").Logger(),
	}
}

// ExamDetail is an exam with its ordered question list.
type ExamDetail struct {
	model.Exam
	Questions []model.Question `json:"questions"`
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListPublished retrieves all published exams.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// GetDetail retrieves an exam together with its questions, author-scoped.
func (s *ExamService) GetDetail(ctx context.Context, id uuid.UUID, authorID int) (*ExamDetail, error) {
	e, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}

	questions, err := s.questionRepo.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return &ExamDetail{Exam: *e, Questions: questions}, nil
}

// ListByAuthor retrieves exams for an author with pagination.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	exams, total, err := s.examRepo.ListByAuthorPaginated(ctx, authorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	return exams, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new exam as DRAFT with no questions.
func (s *ExamService) Create(ctx context.Context, authorID int, req *model.CreateExamRequest) (*model.Exam, error) {
	e := &model.Exam{
		Title:      req.Title,
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		AuthorID:   authorID,
		Status:     model.ExamStatusDraft,
	}
	if err := s.examRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return e, nil
}

// CreateWithQuestions inserts a new DRAFT exam with a prepared question list.
// Used by the generator.
func (s *ExamService) CreateWithQuestions(ctx context.Context, e *model.Exam, questions []model.Question) (*ExamDetail, error) {
	e.Status = model.ExamStatusDraft
	if err := s.examRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	for i := range questions {
		questions[i].ExamID = e.ID
		questions[i].Position = i
	}
	if err := s.questionRepo.ReplaceAll(ctx, e.ID, questions); err != nil {
		return nil, fmt.Errorf("store questions: %w", err)
	}
	return &ExamDetail{Exam: *e, Questions: questions}, nil
}

// Update replaces a draft exam's title, subject and entire question list.
// The draft must pass domain validation before anything is written.
func (s *ExamService) Update(ctx context.Context, examID uuid.UUID, authorID int, req *model.UpdateExamRequest) (*ExamDetail, error) {
	e, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if e.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if e.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	questions, err := questionsFromInput(examID, req.Questions)
	if err != nil {
		return nil, err
	}

	if verr := exam.ValidateExam(req.Title, req.Subject, questions); verr != nil {
		return nil, verr
	}

	if err := s.examRepo.UpdateMeta(ctx, examID, req.Title, req.Subject); err != nil {
		return nil, fmt.Errorf("update meta: %w", err)
	}
	if err := s.questionRepo.ReplaceAll(ctx, examID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	e.Title = req.Title
	e.Subject = req.Subject
	return &ExamDetail{Exam: *e, Questions: questions}, nil
}

// editDraft loads a draft exam into an editor, applies fn, and persists the
// committed question list. Every question operation endpoint goes through
// here so the editing rules live in one place.
func (s *ExamService) editDraft(ctx context.Context, examID uuid.UUID, authorID int, fn func(ed *exam.Editor) error) (*ExamDetail, error) {
	e, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if e.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if e.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	ed := exam.EditorFromExam(e.Title, e.Subject, questions)
	if err := fn(ed); err != nil {
		return nil, err
	}
	ed.Commit()

	updated := ed.Questions()
	for i := range updated {
		updated[i].ExamID = examID
	}

	if err := s.questionRepo.ReplaceAll(ctx, examID, updated); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	if err := s.examRepo.Touch(ctx, examID); err != nil {
		return nil, fmt.Errorf("touch exam: %w", err)
	}

	return &ExamDetail{Exam: *e, Questions: updated}, nil
}

// AddQuestion appends a question to a draft. An empty request appends the
// blank template; provided fields override it.
func (s *ExamService) AddQuestion(ctx context.Context, examID uuid.UUID, authorID int, req *model.AddQuestionRequest) (*ExamDetail, error) {
	return s.editDraft(ctx, examID, authorID, func(ed *exam.Editor) error {
		q := ed.AddQuestion()
		if req.QuestionText != "" {
			q.QuestionText = req.QuestionText
		}
		if req.QuestionType != "" {
			q.QuestionType = model.QuestionType(req.QuestionType)
		}
		if len(req.Options) > 0 {
			q.Options = append([]string(nil), req.Options...)
		}
		if req.CorrectAnswer != "" {
			q.CorrectAnswer = req.CorrectAnswer
		}
		return ed.SetQuestion(ed.Len()-1, q)
	})
}

// DuplicateQuestion clones the question at index with a fresh identity,
// appending the copy at the end of the draft.
func (s *ExamService) DuplicateQuestion(ctx context.Context, examID uuid.UUID, authorID, index int) (*ExamDetail, error) {
	return s.editDraft(ctx, examID, authorID, func(ed *exam.Editor) error {
		_, err := ed.DuplicateQuestion(index)
		return err
	})
}

// RemoveQuestion deletes the question at index. A draft may end up empty.
func (s *ExamService) RemoveQuestion(ctx context.Context, examID uuid.UUID, authorID, index int) (*ExamDetail, error) {
	return s.editDraft(ctx, examID, authorID, func(ed *exam.Editor) error {
		return ed.RemoveQuestion(index)
	})
}

// ReorderQuestion moves a question from one index to another.
func (s *ExamService) ReorderQuestion(ctx context.Context, examID uuid.UUID, authorID int, req *model.ReorderQuestionRequest) (*ExamDetail, error) {
	return s.editDraft(ctx, examID, authorID, func(ed *exam.Editor) error {
		ed.Reorder(req.FromIndex, req.ToIndex)
		return nil
	})
}

// Stats analyzes a draft's question mix and returns authoring recommendations.
func (s *ExamService) Stats(ctx context.Context, examID uuid.UUID, authorID int) (*exam.Stats, error) {
	e, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if e.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	stats := exam.Analyze(questions)
	return &stats, nil
}

// Publish validates the full draft, warms the Redis fast lane, and flips the
// status to PUBLISHED.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, authorID int) error {
	e, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if e.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if e.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	if verr := exam.ValidateExam(e.Title, e.Subject, questions); verr != nil {
		return verr
	}

	if err := s.warmExamCache(ctx, e, questions); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// Unpublish flips a published exam back to DRAFT and drops its cache so
// students can no longer start it.
func (s *ExamService) Unpublish(ctx context.Context, examID uuid.UUID, authorID int) error {
	e, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if e.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if e.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusDraft); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	s.dropExamCache(ctx, examID)

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam unpublished")
	return nil
}

// Delete removes an exam the author owns, published or not, along with its
// cached payload.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if err := s.examRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.dropExamCache(ctx, id)
	return nil
}

// warmExamCache loads the student payload, answer key and duration into Redis.
// This is the core cache-warming logic used by Publish and PrewarmAllCaches.
func (s *ExamService) warmExamCache(ctx context.Context, e *model.Exam, questions []model.Question) error {
	// Build student-facing payload (without correct answers).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Options:      q.Options,
			Position:     q.Position,
		}
	}

	durationSeconds := len(questions) * s.secondsPerQuestion

	payload := model.ExamPayload{
		ExamID:          e.ID,
		Title:           e.Title,
		Subject:         e.Subject,
		DurationSeconds: durationSeconds,
		Questions:       studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Build answer key map for RAM grading.
	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = q.CorrectAnswer
	}

	// Cache all three atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(e.ID.String()), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(e.ID.String()))
	pipe.HSet(ctx, config.CacheKey.ExamAnswerKey(e.ID.String()), answerKey)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(e.ID.String()), durationSeconds, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", e.ID.String()).
		Int("questions", len(questions)).
		Int("duration_seconds", durationSeconds).
		Msg("Cache warmed")
	return nil
}

func (s *ExamService) dropExamCache(ctx context.Context, examID uuid.UUID) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String()))
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(examID.String()))
	pipe.Del(ctx, config.CacheKey.ExamDurationKey(examID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop exam cache")
	}
}

// PrewarmAllCaches loads all published exams into Redis on application startup.
// This prevents any lazy-loading race conditions under thundering herd traffic.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming published exams...")

	warmed := 0
	for i := range exams {
		questions, err := s.questionRepo.ListByExam(ctx, exams[i].ID)
		if err != nil || len(questions) == 0 {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to load questions, skipping")
			continue
		}
		if err := s.warmExamCache(ctx, &exams[i], questions); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached student payload from Redis.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPayloadNotCached
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the answer key from Redis for instant grading.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("answer key not found in cache")
	}
	return result, nil
}

// questionsFromInput converts wire-form questions to domain questions,
// keeping known identities and assigning fresh ones to new entries.
func questionsFromInput(examID uuid.UUID, inputs []model.QuestionInput) ([]model.Question, error) {
	questions := make([]model.Question, len(inputs))
	for i, in := range inputs {
		id := uuid.New()
		if in.ID != "" {
			parsed, err := uuid.Parse(in.ID)
			if err != nil {
				return nil, fmt.Errorf("invalid question id at index %d: %w", i, err)
			}
			id = parsed
		}
		questions[i] = model.Question{
			ID:            id,
			ExamID:        examID,
			QuestionText:  in.QuestionText,
			QuestionType:  model.QuestionType(in.QuestionType),
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
			Position:      i,
		}
	}
	return questions, nil
}
