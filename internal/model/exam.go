package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
)

// Exam represents an exam entity. Questions are loaded separately and ordered
// by position.
type Exam struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Subject    string     `json:"subject"`
	Difficulty string     `json:"difficulty,omitempty"`
	AuthorID   int        `json:"author_id"`
	Status     ExamStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ExamPayload is the Redis-cached payload sent to students (no correct answers).
type ExamPayload struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	Subject         string               `json:"subject"`
	DurationSeconds int                  `json:"duration_seconds"`
	Questions       []QuestionForStudent `json:"questions"`
}

// CreateExamRequest is the payload for creating a new draft exam.
type CreateExamRequest struct {
	Title      string `json:"title" binding:"required,min=1,max=255"`
	Subject    string `json:"subject" binding:"required,min=1,max=255"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// UpdateExamRequest is the full-draft update payload: the editor submits
// title, subject and the complete ordered question list in one shot.
type UpdateExamRequest struct {
	Title     string          `json:"title"`
	Subject   string          `json:"subject"`
	Questions []QuestionInput `json:"questions" binding:"dive"`
}

// GenerateCounts holds the per-type question counts for exam generation.
type GenerateCounts struct {
	MCQ       int `json:"mcq" binding:"min=0,max=50"`
	TrueFalse int `json:"true_false" binding:"min=0,max=50"`
	Short     int `json:"short" binding:"min=0,max=50"`
	Essay     int `json:"essay" binding:"min=0,max=50"`
}

// Total returns the number of questions requested across all types.
func (g GenerateCounts) Total() int {
	return g.MCQ + g.TrueFalse + g.Short + g.Essay
}

// GenerateExamRequest is the payload for LLM-backed exam generation.
type GenerateExamRequest struct {
	Subject    string         `json:"subject" binding:"required,min=1,max=255"`
	Difficulty string         `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Counts     GenerateCounts `json:"counts"`
}
