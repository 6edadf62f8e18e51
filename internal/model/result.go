package model

import (
	"github.com/google/uuid"
)

// QuestionResult is the graded outcome for a single question. Unanswered
// questions still produce an entry, with an empty answer and IsCorrect false.
type QuestionResult struct {
	QuestionID uuid.UUID `json:"question_id"`
	UserAnswer string    `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
	Feedback   string    `json:"feedback"`
}

// ExamResult is the graded outcome of a completed attempt, one entry per
// question in delivery order.
type ExamResult struct {
	ExamID        uuid.UUID        `json:"exam_id"`
	AttemptNumber int              `json:"attempt_number"`
	Score         int              `json:"score"`
	Total         int              `json:"total"`
	Message       string           `json:"message"`
	Results       []QuestionResult `json:"results"`
}
