package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// ExamAttempt represents a student's delivery of an exam. A retake reuses the
// row: the attempt number increments and answers, timer and result reset.
type ExamAttempt struct {
	ID            uuid.UUID     `json:"id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	StudentID     int           `json:"student_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	Score         *int          `json:"score,omitempty"`
	Total         *int          `json:"total,omitempty"`
}

// AttemptState is the in-progress view sent to a student resuming delivery:
// their autosaved answers plus the authoritative remaining time.
type AttemptState struct {
	ExamID           uuid.UUID         `json:"exam_id"`
	StudentID        int               `json:"student_id"`
	AttemptNumber    int               `json:"attempt_number"`
	Status           AttemptStatus     `json:"status"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingSeconds int               `json:"remaining_seconds"`
}

// SubmitAttemptRequest carries the final answer map on submission. Answers
// autosaved over the WebSocket stream are merged in server-side, so a client
// that lost its connection can still submit everything it has.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers"`
}
