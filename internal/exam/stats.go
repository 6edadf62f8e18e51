package exam

import (
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
)

// Advisory thresholds for draft recommendations.
const (
	minRecommendedQuestions = 5
	trueFalseAdviceMinTotal = 10
)

// Stats summarizes the composition of a draft's question list plus advisory
// recommendations. Recommendations never block submission.
type Stats struct {
	Total           int                        `json:"total"`
	TypeCounts      map[model.QuestionType]int `json:"type_counts"`
	Recommendations []string                   `json:"recommendations"`
}

// Analyze derives distribution counts and rule-based recommendations from the
// current question list.
func Analyze(questions []model.Question) Stats {
	counts := map[model.QuestionType]int{
		model.QuestionTypeMultipleChoice: 0,
		model.QuestionTypeTrueFalse:      0,
		model.QuestionTypeShortAnswer:    0,
		model.QuestionTypeEssay:          0,
	}
	for _, q := range questions {
		counts[q.QuestionType]++
	}

	total := len(questions)
	var recs []string

	if total < minRecommendedQuestions {
		recs = append(recs, "Exams with fewer than 5 questions give limited practice; consider adding more.")
	}
	if total > 0 && counts[model.QuestionTypeMultipleChoice]*2 > total {
		recs = append(recs, "More than half the questions are multiple-choice; mix in other types for variety.")
	}
	if total > 0 && counts[model.QuestionTypeEssay] == 0 {
		recs = append(recs, "No essay question present; consider one to test deeper understanding.")
	}
	if total >= trueFalseAdviceMinTotal && counts[model.QuestionTypeTrueFalse]*3 > total {
		recs = append(recs, "A large share of true/false questions makes guessing easy; consider rebalancing.")
	}

	return Stats{
		Total:           total,
		TypeCounts:      counts,
		Recommendations: recs,
	}
}
