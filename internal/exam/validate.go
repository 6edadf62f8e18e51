// Package exam holds the pure authoring, delivery and scoring core.
// Nothing in this package touches the network, the database or Redis;
// the service layer adapts it to persistence and transport.
package exam

import (
	"fmt"
	"strings"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
)

// Validation messages. The option errors are distinct on purpose: the editor
// UI renders "wrong count" and "empty entries" differently.
const (
	MsgQuestionTextRequired  = "question text is required"
	MsgCorrectAnswerRequired = "correct answer is required"
	MsgOptionCount           = "multiple-choice questions must have exactly 4 options"
	MsgOptionsFilled         = "all options must be filled"
	MsgTitleRequired         = "title is required"
	MsgSubjectRequired       = "subject is required"
	MsgQuestionsRequired     = "an exam needs at least one question"
)

// FieldError is a validation error scoped to a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates field-scoped errors. A nil/empty value means
// the subject passed validation.
type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "valid"
	}
	parts := make([]string, len(ve))
	for i, fe := range ve {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Fields converts the error list to a field → message map for the response
// envelope. Later errors on the same field do not overwrite earlier ones.
func (ve ValidationErrors) Fields() map[string]string {
	if len(ve) == 0 {
		return nil
	}
	m := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, ok := m[fe.Field]; !ok {
			m[fe.Field] = fe.Message
		}
	}
	return m
}

// ValidateQuestion checks a single question. Multiple-choice questions must
// carry exactly four non-empty options; every other type ignores options.
func ValidateQuestion(q model.Question) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(q.QuestionText) == "" {
		errs = append(errs, FieldError{Field: "question_text", Message: MsgQuestionTextRequired})
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		errs = append(errs, FieldError{Field: "correct_answer", Message: MsgCorrectAnswerRequired})
	}

	if q.QuestionType == model.QuestionTypeMultipleChoice {
		if len(q.Options) != model.MultipleChoiceOptionCount {
			errs = append(errs, FieldError{Field: "options", Message: MsgOptionCount})
		} else {
			for _, opt := range q.Options {
				if strings.TrimSpace(opt) == "" {
					errs = append(errs, FieldError{Field: "options", Message: MsgOptionsFilled})
					break
				}
			}
		}
	}

	return errs
}

// ValidateExam checks the whole draft: title, subject, question count, and
// every question individually. Question errors are collected across all
// questions (not just the first invalid one) so a form can flag them all at
// once; their fields are prefixed with the question index, e.g.
// "questions[2].options".
func ValidateExam(title, subject string, questions []model.Question) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: MsgTitleRequired})
	}
	if strings.TrimSpace(subject) == "" {
		errs = append(errs, FieldError{Field: "subject", Message: MsgSubjectRequired})
	}
	if len(questions) == 0 {
		errs = append(errs, FieldError{Field: "questions", Message: MsgQuestionsRequired})
	}

	for i, q := range questions {
		for _, fe := range ValidateQuestion(q) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("questions[%d].%s", i, fe.Field),
				Message: fe.Message,
			})
		}
	}

	return errs
}
