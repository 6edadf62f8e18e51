package exam

import (
	"strings"
	"testing"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
)

func mcq(text, answer string, options ...string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QuestionText:  text,
		QuestionType:  model.QuestionTypeMultipleChoice,
		Options:       options,
		CorrectAnswer: answer,
	}
}

func question(qt model.QuestionType, text, answer string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QuestionText:  text,
		QuestionType:  qt,
		CorrectAnswer: answer,
	}
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name     string
		q        model.Question
		wantErrs map[string]string // field -> message, empty means valid
	}{
		{
			name:     "valid short answer",
			q:        question(model.QuestionTypeShortAnswer, "Capital of France?", "Paris"),
			wantErrs: map[string]string{},
		},
		{
			name:     "valid mcq with 4 options",
			q:        mcq("Pick B", "B", "a1", "a2", "a3", "a4"),
			wantErrs: map[string]string{},
		},
		{
			name:     "missing text",
			q:        question(model.QuestionTypeEssay, "  ", "anything"),
			wantErrs: map[string]string{"question_text": MsgQuestionTextRequired},
		},
		{
			name:     "missing answer",
			q:        question(model.QuestionTypeTrueFalse, "Sky is blue", ""),
			wantErrs: map[string]string{"correct_answer": MsgCorrectAnswerRequired},
		},
		{
			name:     "mcq with 3 options",
			q:        mcq("Pick B", "B", "a1", "a2", "a3"),
			wantErrs: map[string]string{"options": MsgOptionCount},
		},
		{
			name:     "mcq with 5 options",
			q:        mcq("Pick B", "B", "a1", "a2", "a3", "a4", "a5"),
			wantErrs: map[string]string{"options": MsgOptionCount},
		},
		{
			name:     "mcq with blank option",
			q:        mcq("Pick B", "B", "a1", "  ", "a3", "a4"),
			wantErrs: map[string]string{"options": MsgOptionsFilled},
		},
		{
			name: "non-mcq ignores options entirely",
			q: model.Question{
				ID:            uuid.New(),
				QuestionText:  "Essay prompt",
				QuestionType:  model.QuestionTypeEssay,
				Options:       []string{"", "leftover"},
				CorrectAnswer: "free text",
			},
			wantErrs: map[string]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateQuestion(tc.q).Fields()
			if len(got) != len(tc.wantErrs) {
				t.Fatalf("got %d errors (%v), want %d", len(got), got, len(tc.wantErrs))
			}
			for field, msg := range tc.wantErrs {
				if got[field] != msg {
					t.Errorf("field %q: got %q, want %q", field, got[field], msg)
				}
			}
		})
	}
}

func TestValidateExam_CollectsAllQuestionErrors(t *testing.T) {
	questions := []model.Question{
		mcq("ok", "A", "a", "b", "c", "d"),
		mcq("broken count", "A", "a", "b", "c"),
		question(model.QuestionTypeShortAnswer, "", "answer"),
	}

	errs := ValidateExam("Algebra Midterm", "Math", questions)
	fields := errs.Fields()

	if _, ok := fields["title"]; ok {
		t.Error("unexpected title error")
	}
	if _, ok := fields["subject"]; ok {
		t.Error("unexpected subject error")
	}
	if fields["questions[1].options"] != MsgOptionCount {
		t.Errorf("questions[1].options = %q, want option count error", fields["questions[1].options"])
	}
	if fields["questions[2].question_text"] != MsgQuestionTextRequired {
		t.Errorf("questions[2].question_text = %q, want required error", fields["questions[2].question_text"])
	}
	if len(fields) != 2 {
		t.Errorf("expected exactly 2 field errors, got %v", fields)
	}
}

func TestValidateExam_EmptyDraft(t *testing.T) {
	errs := ValidateExam("", " ", nil)
	fields := errs.Fields()

	for _, field := range []string{"title", "subject", "questions"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing error for %q: %v", field, fields)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "title", Message: MsgTitleRequired},
		{Field: "questions", Message: MsgQuestionsRequired},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "title") || !strings.Contains(msg, "questions") {
		t.Errorf("error string should mention both fields: %q", msg)
	}
}
