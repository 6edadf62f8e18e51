package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPayloadKey returns the cache key for an exam's student-facing payload.
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamAnswerKey returns the cache key for an exam's answer key hash.
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

// ExamDurationKey returns the cache key for an exam's delivery duration (seconds).
func (r *CacheKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration", examID)
}

// StudentAnswersKey returns the cache key for a student's autosaved answers.
func (r *CacheKeyStruct) StudentAnswersKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:answers", studentID, examID)
}

// AttemptStartKey returns the cache key for a student's attempt start time.
func (r *CacheKeyStruct) AttemptStartKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:attempt_start", studentID, examID)
}

// AttemptNumberKey returns the cache key for a student's current attempt number.
// Incremented on every retake; used to discard stale submission responses.
func (r *CacheKeyStruct) AttemptNumberKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:attempt_no", studentID, examID)
}

// SubmitGuardKey returns the key used to serialize submissions.
// Set with NX so a manual submit racing a timeout auto-submit grades once.
func (r *CacheKeyStruct) SubmitGuardKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:submitting", studentID, examID)
}

// AttemptResultKey returns the cache key for a student's latest graded result.
func (r *CacheKeyStruct) AttemptResultKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:result", studentID, examID)
}

var CacheKey = NewCacheKeyStruct()
