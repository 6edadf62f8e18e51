package exam

import (
	"testing"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
)

func studentQuestions(n int) []model.QuestionForStudent {
	qs := make([]model.QuestionForStudent, n)
	for i := range qs {
		qs[i] = model.QuestionForStudent{
			ID:           uuid.New(),
			QuestionText: "question",
			QuestionType: model.QuestionTypeShortAnswer,
			Position:     i,
		}
	}
	return qs
}

func TestDelivery_TimeBudget(t *testing.T) {
	d := NewDelivery(studentQuestions(3), 60)
	if d.TimeLeft() != 180 {
		t.Errorf("time left = %d, want 180", d.TimeLeft())
	}
	if d.State() != DeliveryInProgress {
		t.Errorf("state = %s, want IN_PROGRESS", d.State())
	}
	if d.AttemptNumber() != 1 {
		t.Errorf("attempt = %d, want 1", d.AttemptNumber())
	}
}

func TestDelivery_TickFiresAutoSubmitExactlyOnce(t *testing.T) {
	qs := studentQuestions(2)
	d := NewDelivery(qs, 3) // 6 second budget keeps the loop small
	fired := 0

	for i := 0; i < 20; i++ {
		if d.Tick() {
			fired++
			// The caller grades and completes the attempt.
			result := Grade(nil, d.Answers())
			d.CompleteSubmit(&result)
		}
	}

	if fired != 1 {
		t.Errorf("auto-submit fired %d times, want exactly 1", fired)
	}
	if d.State() != DeliveryCompleted {
		t.Errorf("state = %s, want COMPLETED", d.State())
	}
}

func TestDelivery_ManualSubmitRacingFinalTick(t *testing.T) {
	d := NewDelivery(studentQuestions(1), 2)

	d.Tick() // 1 second left
	if err := d.BeginSubmit(); err != nil {
		t.Fatalf("manual submit: %v", err)
	}

	// The final tick arrives while the manual submission is underway.
	if d.Tick() {
		t.Error("tick during SUBMITTING must not fire a second submission")
	}
	if err := d.BeginSubmit(); err != ErrNotInProgress {
		t.Errorf("second manual submit: err = %v, want ErrNotInProgress", err)
	}
}

func TestDelivery_RecordAnswerUpsertsOnlyInProgress(t *testing.T) {
	qs := studentQuestions(2)
	d := NewDelivery(qs, 60)
	qid := qs[0].ID.String()

	d.RecordAnswer(qid, "first")
	d.RecordAnswer(qid, "second")
	if got := d.Answers()[qid]; got != "second" {
		t.Errorf("answer = %q, want upserted %q", got, "second")
	}
	if len(d.Answers()) != 1 {
		t.Errorf("answers = %v, want a single key", d.Answers())
	}

	if err := d.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	d.RecordAnswer(qid, "late")
	if got := d.Answers()[qid]; got != "second" {
		t.Errorf("answer after submit = %q, recording must be a no-op", got)
	}
}

func TestDelivery_FailedSubmitKeepsAnswers(t *testing.T) {
	qs := studentQuestions(2)
	d := NewDelivery(qs, 60)
	d.RecordAnswer(qs[0].ID.String(), "kept")

	if err := d.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	d.FailSubmit()

	if d.State() != DeliveryInProgress {
		t.Errorf("state = %s, want IN_PROGRESS after failed submit", d.State())
	}
	if d.Answers()[qs[0].ID.String()] != "kept" {
		t.Error("failed submit must not lose recorded answers")
	}
	// The taker can immediately submit again.
	if err := d.BeginSubmit(); err != nil {
		t.Errorf("retry submit: %v", err)
	}
}

func TestDelivery_AutoSubmitRetriesAfterFailure(t *testing.T) {
	qs := studentQuestions(1)
	d := NewDelivery(qs, 2)
	d.RecordAnswer(qs[0].ID.String(), "kept")

	fired := 0
	for i := 0; i < 5; i++ {
		if d.Tick() {
			fired++
			// Grading fails; the machine goes back in progress at zero.
			d.FailSubmit()
		}
	}

	// Every subsequent tick must offer the submission again, not abandon it.
	if fired != 4 {
		t.Errorf("auto-submit fired %d times across failing ticks, want 4", fired)
	}
	if d.State() != DeliveryInProgress {
		t.Errorf("state = %s, want IN_PROGRESS after failed auto-submit", d.State())
	}
	if d.Answers()[qs[0].ID.String()] != "kept" {
		t.Error("failed auto-submit must not lose recorded answers")
	}

	// The retry that finally succeeds completes the attempt.
	if !d.Tick() {
		t.Fatal("expected the next tick to fire the submission again")
	}
	result := Grade(nil, d.Answers())
	d.CompleteSubmit(&result)
	if d.State() != DeliveryCompleted {
		t.Errorf("state = %s, want COMPLETED", d.State())
	}
}

func TestDelivery_NavigateClamps(t *testing.T) {
	d := NewDelivery(studentQuestions(3), 60)

	tests := []struct {
		in, want int
	}{
		{0, 0}, {2, 2}, {-5, 0}, {3, 2}, {100, 2},
	}
	for _, tc := range tests {
		d.Navigate(tc.in)
		if d.CurrentIndex() != tc.want {
			t.Errorf("navigate(%d): index = %d, want %d", tc.in, d.CurrentIndex(), tc.want)
		}
	}

	// Navigation leaves answers and timer alone.
	if d.TimeLeft() != 180 || len(d.Answers()) != 0 {
		t.Error("navigation must not touch answers or timer")
	}
}

func TestDelivery_RetakeFullyResets(t *testing.T) {
	qs := studentQuestions(3)
	d := NewDelivery(qs, 60)
	d.RecordAnswer(qs[0].ID.String(), "stale")
	d.Navigate(2)
	for i := 0; i < 30; i++ {
		d.Tick()
	}

	if err := d.Retake(); err != ErrNotCompleted {
		t.Fatalf("retake before completion: err = %v, want ErrNotCompleted", err)
	}

	if err := d.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	result := Grade(nil, d.Answers())
	d.CompleteSubmit(&result)

	if err := d.Retake(); err != nil {
		t.Fatalf("retake: %v", err)
	}

	if d.State() != DeliveryInProgress {
		t.Errorf("state = %s, want IN_PROGRESS", d.State())
	}
	if len(d.Answers()) != 0 {
		t.Errorf("answers = %v, want empty", d.Answers())
	}
	if d.TimeLeft() != 180 {
		t.Errorf("time left = %d, want full 180", d.TimeLeft())
	}
	if d.CurrentIndex() != 0 {
		t.Errorf("index = %d, want 0", d.CurrentIndex())
	}
	if d.AttemptNumber() != 2 {
		t.Errorf("attempt = %d, want 2", d.AttemptNumber())
	}
	if d.Result() != nil {
		t.Error("result must be cleared on retake")
	}
}

func TestDelivery_FullTimeoutScenario(t *testing.T) {
	// 3 questions, 180 ticks, no manual submit.
	qs := studentQuestions(3)
	d := NewDelivery(qs, 60)
	d.RecordAnswer(qs[1].ID.String(), "only answer")

	fired := 0
	for i := 0; i < 180; i++ {
		if d.Tick() {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("auto-submit fired %d times over 180 ticks, want 1", fired)
	}

	answers := d.Answers()
	if answers[qs[1].ID.String()] != "only answer" {
		t.Error("recorded answer must survive the timeout")
	}

	result := Grade(nil, answers)
	d.CompleteSubmit(&result)
	if d.State() != DeliveryCompleted {
		t.Errorf("state = %s, want COMPLETED", d.State())
	}
}
