package exam

import (
	"errors"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
)

// DeliveryState enumerates the delivery state machine states.
type DeliveryState string

const (
	DeliveryInProgress DeliveryState = "IN_PROGRESS"
	DeliverySubmitting DeliveryState = "SUBMITTING"
	DeliveryCompleted  DeliveryState = "COMPLETED"
)

// Delivery errors.
var (
	ErrNotInProgress = errors.New("delivery is not in progress")
	ErrNotCompleted  = errors.New("delivery is not completed")
)

// Delivery is the timed, answer-collecting state machine for one attempt of
// one exam. All mutation is single-goroutine (the owning connection or test
// drives it); the machine itself guarantees the submission fires at most once
// per attempt no matter how Tick and Submit interleave.
type Delivery struct {
	questionIDs     []string
	answers         map[string]string
	fullDuration    int
	timeLeftSeconds int
	currentIndex    int
	state           DeliveryState
	attemptNumber   int
	result          *model.ExamResult
}

// NewDelivery starts a delivery over the given questions with a time budget
// of secondsPerQuestion per question.
func NewDelivery(questions []model.QuestionForStudent, secondsPerQuestion int) *Delivery {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID.String()
	}
	duration := len(questions) * secondsPerQuestion
	return &Delivery{
		questionIDs:     ids,
		answers:         make(map[string]string),
		fullDuration:    duration,
		timeLeftSeconds: duration,
		state:           DeliveryInProgress,
		attemptNumber:   1,
	}
}

// ResumeDelivery rebuilds an in-progress delivery from persisted state:
// autosaved answers, the authoritative remaining time and the attempt number.
// fullDuration is kept separately so a later retake restores the full budget.
func ResumeDelivery(questions []model.QuestionForStudent, fullDuration, remainingSeconds, attemptNumber int, answers map[string]string) *Delivery {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID.String()
	}
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	if remainingSeconds > fullDuration {
		remainingSeconds = fullDuration
	}
	if attemptNumber < 1 {
		attemptNumber = 1
	}
	restored := make(map[string]string, len(answers))
	for k, v := range answers {
		restored[k] = v
	}
	return &Delivery{
		questionIDs:     ids,
		answers:         restored,
		fullDuration:    fullDuration,
		timeLeftSeconds: remainingSeconds,
		state:           DeliveryInProgress,
		attemptNumber:   attemptNumber,
	}
}

// State returns the current delivery state.
func (d *Delivery) State() DeliveryState { return d.state }

// AttemptNumber returns the current attempt number, starting at 1 and
// incremented by every retake. Responses from earlier attempts are stale.
func (d *Delivery) AttemptNumber() int { return d.attemptNumber }

// TimeLeft returns the remaining seconds.
func (d *Delivery) TimeLeft() int { return d.timeLeftSeconds }

// CurrentIndex returns the question the taker is looking at.
func (d *Delivery) CurrentIndex() int { return d.currentIndex }

// Result returns the stored result, nil unless Completed.
func (d *Delivery) Result() *model.ExamResult { return d.result }

// Answers returns a copy of the recorded answers.
func (d *Delivery) Answers() map[string]string {
	out := make(map[string]string, len(d.answers))
	for k, v := range d.answers {
		out[k] = v
	}
	return out
}

// RecordAnswer upserts the taker's answer for a question. Ignored once
// submission has begun.
func (d *Delivery) RecordAnswer(questionID, value string) {
	if d.state != DeliveryInProgress {
		return
	}
	d.answers[questionID] = value
}

// Navigate moves to the given question index, clamped to the valid range.
// Navigation never touches answers or the timer.
func (d *Delivery) Navigate(index int) {
	if len(d.questionIDs) == 0 {
		d.currentIndex = 0
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(d.questionIDs)-1 {
		index = len(d.questionIDs) - 1
	}
	d.currentIndex = index
}

// Tick advances the countdown by one second. When the counter reaches zero it
// transitions to Submitting and returns true exactly once: the caller must
// perform the actual submission. Ticks outside InProgress are ignored, so a
// stray timer firing after a manual submit cannot double-fire.
func (d *Delivery) Tick() bool {
	if d.state != DeliveryInProgress {
		return false
	}
	if d.timeLeftSeconds > 0 {
		d.timeLeftSeconds--
	}
	if d.timeLeftSeconds == 0 {
		d.state = DeliverySubmitting
		return true
	}
	return false
}

// BeginSubmit transitions InProgress → Submitting for a manual submission.
// Returns ErrNotInProgress if a submission is already underway or the attempt
// is finished, guarding the manual-vs-timeout race.
func (d *Delivery) BeginSubmit() error {
	if d.state != DeliveryInProgress {
		return ErrNotInProgress
	}
	d.state = DeliverySubmitting
	return nil
}

// CompleteSubmit stores the graded result and finishes the attempt.
func (d *Delivery) CompleteSubmit(result *model.ExamResult) {
	if d.state != DeliverySubmitting {
		return
	}
	d.result = result
	d.state = DeliveryCompleted
}

// FailSubmit returns the machine to InProgress after a failed submission.
// Recorded answers are untouched, so the taker can retry or keep answering.
func (d *Delivery) FailSubmit() {
	if d.state != DeliverySubmitting {
		return
	}
	d.state = DeliveryInProgress
}

// Retake resets the attempt from Completed back to a fresh InProgress state:
// empty answers, full time budget, first question. The attempt number
// increments so in-flight responses for the old attempt are discarded.
func (d *Delivery) Retake() error {
	if d.state != DeliveryCompleted {
		return ErrNotCompleted
	}
	d.answers = make(map[string]string)
	d.timeLeftSeconds = d.fullDuration
	d.currentIndex = 0
	d.result = nil
	d.attemptNumber++
	d.state = DeliveryInProgress
	return nil
}
