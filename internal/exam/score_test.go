package exam

import (
	"strings"
	"testing"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
)

func TestGrade_PerType(t *testing.T) {
	tests := []struct {
		name    string
		q       model.Question
		answer  string
		correct bool
	}{
		{"mcq correct letter", mcq("pick", "B", "a", "b", "c", "d"), "B", true},
		{"mcq lowercase letter", mcq("pick", "B", "a", "b", "c", "d"), "b", true},
		{"mcq wrong letter", mcq("pick", "B", "a", "b", "c", "d"), "C", false},
		{"true-false correct", question(model.QuestionTypeTrueFalse, "q", "True"), "True", true},
		{"true-false case folded", question(model.QuestionTypeTrueFalse, "q", "False"), "false", true},
		{"true-false wrong", question(model.QuestionTypeTrueFalse, "q", "True"), "False", false},
		{"short answer trimmed", question(model.QuestionTypeShortAnswer, "q", "Paris"), "  paris ", true},
		{"short answer whitespace collapsed", question(model.QuestionTypeShortAnswer, "q", "New  York"), "new york", true},
		{"short answer wrong", question(model.QuestionTypeShortAnswer, "q", "Paris"), "London", false},
		{"essay exact-ish", question(model.QuestionTypeEssay, "q", "photosynthesis"), "Photosynthesis", true},
		{"empty answer never correct", question(model.QuestionTypeShortAnswer, "q", "Paris"), "   ", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Grade([]model.Question{tc.q}, map[string]string{tc.q.ID.String(): tc.answer})
			if len(res.Results) != 1 {
				t.Fatalf("results = %d entries, want 1", len(res.Results))
			}
			if res.Results[0].IsCorrect != tc.correct {
				t.Errorf("isCorrect = %v, want %v", res.Results[0].IsCorrect, tc.correct)
			}
			wantScore := 0
			if tc.correct {
				wantScore = 1
			}
			if res.Score != wantScore || res.Total != 1 {
				t.Errorf("score = %d/%d, want %d/1", res.Score, res.Total, wantScore)
			}
		})
	}
}

func TestGrade_UnansweredQuestionsStillAppear(t *testing.T) {
	qs := []model.Question{
		question(model.QuestionTypeShortAnswer, "q1", "a1"),
		question(model.QuestionTypeShortAnswer, "q2", "a2"),
		question(model.QuestionTypeShortAnswer, "q3", "a3"),
	}
	res := Grade(qs, map[string]string{qs[0].ID.String(): "a1"})

	if len(res.Results) != 3 {
		t.Fatalf("results = %d entries, want one per question", len(res.Results))
	}
	if res.Score != 1 || res.Total != 3 {
		t.Errorf("score = %d/%d, want 1/3", res.Score, res.Total)
	}

	for i := 1; i < 3; i++ {
		entry := res.Results[i]
		if entry.UserAnswer != "" {
			t.Errorf("unanswered entry %d has answer %q", i, entry.UserAnswer)
		}
		if entry.IsCorrect {
			t.Errorf("unanswered entry %d marked correct", i)
		}
		if !strings.Contains(entry.Feedback, "Not answered") {
			t.Errorf("unanswered feedback = %q", entry.Feedback)
		}
	}

	// Entries come back in delivery order.
	for i, entry := range res.Results {
		if entry.QuestionID != qs[i].ID {
			t.Errorf("entry %d out of order", i)
		}
	}
}

func TestGrade_IgnoresAnswersForUnknownQuestions(t *testing.T) {
	qs := []model.Question{question(model.QuestionTypeShortAnswer, "q", "a")}
	res := Grade(qs, map[string]string{
		qs[0].ID.String():  "a",
		uuid.New().String(): "phantom",
	})
	if res.Total != 1 || res.Score != 1 {
		t.Errorf("score = %d/%d, want 1/1", res.Score, res.Total)
	}
}

func TestBandMessage(t *testing.T) {
	tests := []struct {
		score, total int
		want         string
	}{
		{10, 10, MsgPerfect},
		{8, 10, MsgGreat},  // 0.8 > 0.7
		{7, 10, MsgPractice}, // 0.7 is not > 0.7
		{0, 10, MsgPractice},
		{1, 1, MsgPerfect},
		{0, 0, MsgPractice},
	}
	for _, tc := range tests {
		if got := BandMessage(tc.score, tc.total); got != tc.want {
			t.Errorf("BandMessage(%d, %d) = %q, want %q", tc.score, tc.total, got, tc.want)
		}
	}
}
