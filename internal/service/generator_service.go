package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/config"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/exam"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Domain Errors
var (
	ErrGeneratorDisabled = errors.New("exam generation is not configured")
	ErrGenerationFailed  = errors.New("exam generation failed")
)

// GeneratorService builds draft exams from an LLM behind an OpenAI-compatible
// API. Generated drafts go through the same validation as hand-written ones.
type GeneratorService struct {
	api     *openai.Client
	model   string
	examSvc *ExamService
	log     zerolog.Logger
}

// NewGeneratorService creates a new GeneratorService. Returns a disabled
// service when no API key is configured; Generate then fails fast.
func NewGeneratorService(cfg *config.Config, examSvc *ExamService, log zerolog.Logger) *GeneratorService {
	s := &GeneratorService{
		model:   cfg.OpenAIModel,
		examSvc: examSvc,
		log:     log.With().Str("component", "generator_service").Logger(),
	}
	if cfg.OpenAIAPIKey == "" {
		return s
	}

	apiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	s.api = openai.NewClientWithConfig(apiCfg)
	return s
}

// Enabled reports whether generation is configured.
func (s *GeneratorService) Enabled() bool { return s.api != nil }

// generatedQuestion is the wire shape the model is instructed to produce.
type generatedQuestion struct {
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

type generatedExam struct {
	Title     string              `json:"title"`
	Questions []generatedQuestion `json:"questions"`
}

// Generate produces a new DRAFT exam for the author from the requested
// subject, difficulty and per-type question counts.
func (s *GeneratorService) Generate(ctx context.Context, authorID int, req *model.GenerateExamRequest) (*ExamDetail, error) {
	if s.api == nil {
		return nil, ErrGeneratorDisabled
	}
	if req.Counts.Total() == 0 {
		return nil, fmt.Errorf("%w: no questions requested", ErrGenerationFailed)
	}

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildGeneratorPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	var gen generatedExam
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &gen); err != nil {
		return nil, fmt.Errorf("%w: malformed completion: %v", ErrGenerationFailed, err)
	}

	questions := make([]model.Question, 0, len(gen.Questions))
	for i, g := range gen.Questions {
		questions = append(questions, model.Question{
			ID:            uuid.New(),
			QuestionText:  g.QuestionText,
			QuestionType:  model.QuestionType(g.QuestionType),
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
			Position:      i,
		})
	}

	title := strings.TrimSpace(gen.Title)
	if title == "" {
		title = fmt.Sprintf("%s Exam", req.Subject)
	}

	// The model occasionally ignores the schema; reject anything a human
	// draft would be rejected for.
	if verr := exam.ValidateExam(title, req.Subject, questions); verr != nil {
		s.log.Warn().Err(verr).Int("questions", len(questions)).Msg("Generated draft failed validation")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, verr)
	}

	e := &model.Exam{
		Title:      title,
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		AuthorID:   authorID,
	}

	detail, err := s.examSvc.CreateWithQuestions(ctx, e, questions)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("exam_id", detail.ID.String()).
		Int("questions", len(questions)).
		Str("subject", req.Subject).
		Msg("Exam generated")
	return detail, nil
}

const generatorSystemPrompt = `You are an exam author. Respond with a single JSON object:
{"title": string, "questions": [{"question_text": string, "question_type": string, "options": [string], "correct_answer": string}]}
Rules:
- question_type is one of "multiple-choice", "true-false", "short-answer", "essay".
- multiple-choice questions have exactly 4 non-empty options and correct_answer is one of them verbatim.
- true-false questions have no options and correct_answer is "True" or "False".
- short-answer and essay questions have no options; correct_answer is a model answer.
- Every question has non-empty question_text and correct_answer.`

func buildGeneratorPrompt(req *model.GenerateExamRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write an exam on %q at %s difficulty with:\n", req.Subject, req.Difficulty)
	if req.Counts.MCQ > 0 {
		fmt.Fprintf(&b, "- %d multiple-choice questions\n", req.Counts.MCQ)
	}
	if req.Counts.TrueFalse > 0 {
		fmt.Fprintf(&b, "- %d true-false questions\n", req.Counts.TrueFalse)
	}
	if req.Counts.Short > 0 {
		fmt.Fprintf(&b, "- %d short-answer questions\n", req.Counts.Short)
	}
	if req.Counts.Essay > 0 {
		fmt.Fprintf(&b, "- %d essay questions\n", req.Counts.Essay)
	}
	return b.String()
}
