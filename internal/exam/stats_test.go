package exam

import (
	"strings"
	"testing"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
)

func typed(counts map[model.QuestionType]int) []model.Question {
	var qs []model.Question
	for qt, n := range counts {
		for i := 0; i < n; i++ {
			qs = append(qs, question(qt, "q", "a"))
		}
	}
	return qs
}

func hasRecommendation(recs []string, substr string) bool {
	for _, r := range recs {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestAnalyze_TypeCounts(t *testing.T) {
	qs := typed(map[model.QuestionType]int{
		model.QuestionTypeMultipleChoice: 2,
		model.QuestionTypeEssay:          1,
	})
	stats := Analyze(qs)

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.TypeCounts[model.QuestionTypeMultipleChoice] != 2 {
		t.Errorf("mcq count = %d", stats.TypeCounts[model.QuestionTypeMultipleChoice])
	}
	// Absent types still appear with zero counts for chart rendering.
	if _, ok := stats.TypeCounts[model.QuestionTypeTrueFalse]; !ok {
		t.Error("true-false missing from histogram")
	}
}

func TestAnalyze_Recommendations(t *testing.T) {
	tests := []struct {
		name   string
		counts map[model.QuestionType]int
		want   []string // substrings that must appear
		absent []string // substrings that must not
	}{
		{
			name:   "small draft",
			counts: map[model.QuestionType]int{model.QuestionTypeEssay: 2},
			want:   []string{"fewer than 5"},
			absent: []string{"multiple-choice", "true/false"},
		},
		{
			name: "mcq heavy",
			counts: map[model.QuestionType]int{
				model.QuestionTypeMultipleChoice: 5,
				model.QuestionTypeEssay:          1,
			},
			want: []string{"multiple-choice"},
		},
		{
			name: "no essay",
			counts: map[model.QuestionType]int{
				model.QuestionTypeShortAnswer: 6,
			},
			want: []string{"essay"},
		},
		{
			name: "true-false heavy at 10+",
			counts: map[model.QuestionType]int{
				model.QuestionTypeTrueFalse:   5,
				model.QuestionTypeShortAnswer: 4,
				model.QuestionTypeEssay:       1,
			},
			want: []string{"true/false"},
		},
		{
			name: "true-false heavy below 10 not flagged",
			counts: map[model.QuestionType]int{
				model.QuestionTypeTrueFalse: 4,
				model.QuestionTypeEssay:     1,
			},
			absent: []string{"true/false"},
		},
		{
			name: "balanced draft is quiet",
			counts: map[model.QuestionType]int{
				model.QuestionTypeMultipleChoice: 2,
				model.QuestionTypeTrueFalse:      1,
				model.QuestionTypeShortAnswer:    2,
				model.QuestionTypeEssay:          1,
			},
			absent: []string{"fewer than 5", "multiple-choice", "true/false", "essay"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stats := Analyze(typed(tc.counts))
			for _, substr := range tc.want {
				if !hasRecommendation(stats.Recommendations, substr) {
					t.Errorf("missing recommendation about %q: %v", substr, stats.Recommendations)
				}
			}
			for _, substr := range tc.absent {
				if hasRecommendation(stats.Recommendations, substr) {
					t.Errorf("unexpected recommendation about %q: %v", substr, stats.Recommendations)
				}
			}
		})
	}
}

func TestAnalyze_EmptyDraft(t *testing.T) {
	stats := Analyze(nil)
	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if !hasRecommendation(stats.Recommendations, "fewer than 5") {
		t.Error("empty draft should suggest adding questions")
	}
	// Ratio rules must not fire on an empty list.
	if hasRecommendation(stats.Recommendations, "multiple-choice") ||
		hasRecommendation(stats.Recommendations, "essay") {
		t.Errorf("ratio rules fired on empty draft: %v", stats.Recommendations)
	}
}
