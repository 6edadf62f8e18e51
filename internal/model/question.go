package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeShortAnswer    QuestionType = "short-answer"
	QuestionTypeEssay          QuestionType = "essay"
)

// MultipleChoiceOptionCount is the required option count for multiple-choice
// questions. Other types ignore options entirely.
const MultipleChoiceOptionCount = 4

// Question represents a single exam question. Position is both display order
// and delivery order.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ExamID        uuid.UUID    `json:"exam_id"`
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Position      int          `json:"position"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID    `json:"id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Options      []string     `json:"options,omitempty"`
	Position     int          `json:"position"`
}

// QuestionInput is the wire form of a question inside a draft update.
// An empty id means the question is new; known ids keep their identity so
// reorders and edits preserve autosaved answer mappings.
type QuestionInput struct {
	ID            string   `json:"id" binding:"omitempty,uuid"`
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type" binding:"required,questiontype"`
	Options       []string `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer string   `json:"correct_answer"`
}

// AddQuestionRequest is the payload for appending a question to a draft.
// All fields are optional: an empty body appends the blank short-answer
// template, matching the editor's add semantics. Validation happens on
// draft submission, not here.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"omitempty,max=2000"`
	QuestionType  string   `json:"question_type" binding:"omitempty,questiontype"`
	Options       []string `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,max=2000"`
}

// ReorderQuestionRequest moves one question to a new position.
type ReorderQuestionRequest struct {
	FromIndex int `json:"from_index" binding:"min=0"`
	ToIndex   int `json:"to_index" binding:"min=0"`
}
