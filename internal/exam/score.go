package exam

import (
	"strings"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
)

// Band messages rendered with the result.
const (
	MsgPerfect  = "Perfect score! Outstanding work."
	MsgGreat    = "Great job! You have a solid grasp of this subject."
	MsgPractice = "Keep practicing. Review the questions you missed and try again."
)

// GreatBandThreshold is the score ratio above which the "great job" message
// applies (a perfect score gets its own message).
const GreatBandThreshold = 0.7

// Grade scores an answer map against the exam's questions. Every question
// produces exactly one entry, in delivery order; unanswered questions score
// zero with an empty user answer.
func Grade(questions []model.Question, answers map[string]string) model.ExamResult {
	results := make([]model.QuestionResult, 0, len(questions))
	score := 0

	for _, q := range questions {
		answer, answered := answers[q.ID.String()]
		correct := answered && answerMatches(q, answer)
		if correct {
			score++
		}

		results = append(results, model.QuestionResult{
			QuestionID: q.ID,
			UserAnswer: answer,
			IsCorrect:  correct,
			Feedback:   feedback(q, answered, correct),
		})
	}

	total := len(questions)
	return model.ExamResult{
		Score:   score,
		Total:   total,
		Message: BandMessage(score, total),
		Results: results,
	}
}

// BandMessage maps score/total onto the qualitative result message.
func BandMessage(score, total int) string {
	if total > 0 && score == total {
		return MsgPerfect
	}
	if total > 0 && float64(score)/float64(total) > GreatBandThreshold {
		return MsgGreat
	}
	return MsgPractice
}

// answerMatches compares a taker's answer against the correct one.
// Multiple-choice compares the option letter, true-false the True/False
// literal; free-text types use a normalized case-insensitive match.
func answerMatches(q model.Question, answer string) bool {
	given := strings.TrimSpace(answer)
	expected := strings.TrimSpace(q.CorrectAnswer)
	if given == "" {
		return false
	}

	switch q.QuestionType {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeTrueFalse:
		return strings.EqualFold(given, expected)
	default:
		// Free text: collapse runs of whitespace before comparing.
		return strings.EqualFold(normalizeText(given), normalizeText(expected))
	}
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func feedback(q model.Question, answered, correct bool) string {
	if correct {
		return "Correct!"
	}
	if !answered {
		return "Not answered. The correct answer is: " + q.CorrectAnswer
	}
	return "The correct answer is: " + q.CorrectAnswer
}
