package app

import (
	"math"

	"quiz-session-service/internal/domain"
)

const (
	notAnsweredText     = "Not Answered"
	noCorrectOptionText = "N/A"
)

// Score computes the final result for a session from the quiz document and
// the answer ledger. It is pure: unanswered questions count as incorrect, a
// dangling correct-option id can never match a selection, and an empty quiz
// yields 0% instead of dividing by zero.
func Score(quiz domain.Quiz, ledger map[string]string) domain.ScoreResult {
	details := make([]domain.AnswerDetail, 0, len(quiz.Questions))
	correctCount := 0

	for _, q := range quiz.Questions {
		selectedID, answered := ledger[q.ID]

		selectedText := notAnsweredText
		if answered {
			if opt := findOption(q, selectedID); opt != nil {
				selectedText = opt.Text
			}
		}

		correctText := noCorrectOptionText
		if opt := findOption(q, q.CorrectOptionID); opt != nil {
			correctText = opt.Text
		}

		isCorrect := answered && selectedID == q.CorrectOptionID
		if isCorrect {
			correctCount++
		}

		details = append(details, domain.AnswerDetail{
			QuestionID:     q.ID,
			Question:       q.Text,
			SelectedAnswer: selectedText,
			CorrectAnswer:  correctText,
			IsCorrect:      isCorrect,
		})
	}

	percentage := 0
	if total := len(quiz.Questions); total > 0 {
		// Round half up; inputs are non-negative so math.Round suffices.
		percentage = int(math.Round(100 * float64(correctCount) / float64(total)))
	}

	return domain.ScoreResult{Percentage: percentage, Details: details}
}

// SplitByCorrectness partitions the scored questions into the correct and
// incorrect text lists fed to the feedback generator.
func SplitByCorrectness(details []domain.AnswerDetail) (correct, incorrect []string) {
	for _, d := range details {
		if d.IsCorrect {
			correct = append(correct, d.Question)
		} else {
			incorrect = append(incorrect, d.Question)
		}
	}
	return correct, incorrect
}

func findOption(q domain.Question, optionID string) *domain.Option {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return &q.Options[i]
		}
	}
	return nil
}
