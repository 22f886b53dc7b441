package app

import (
	"quiz-session-service/internal/domain"
)

// Breakdown is the output of Score.
type Breakdown struct {
	Score         int
	TotalPossible int
	Correct       int
	Wrong         int
	Review        []domain.QuestionReview
}

// Score grades answers against quiz in question order. Text questions are
// excluded from both score and total; choice questions are correct only on an
// exact, case-sensitive match with the correct answer.
func Score(quiz domain.Quiz, answers domain.AnswerMap) Breakdown {
	out := Breakdown{Review: make([]domain.QuestionReview, 0, len(quiz.Questions))}
	graded := 0
	for i, q := range quiz.Questions {
		answer, present := answers[q.ID]
		review := domain.QuestionReview{
			Number:     i + 1,
			QuestionID: q.ID,
			Kind:       q.Kind,
			Prompt:     q.Prompt,
			Options:    q.Options,
			Answer:     answer,
			Answered:   answer != "",
			Points:     q.Points,
		}

		if !q.Kind.Graded() {
			review.Status = domain.ReviewUngraded
			out.Review = append(out.Review, review)
			continue
		}

		graded++
		out.TotalPossible += q.Points
		review.CorrectAnswer = q.CorrectAnswer
		switch {
		case present && answer == q.CorrectAnswer:
			review.Status = domain.ReviewCorrect
			review.Awarded = q.Points
			out.Score += q.Points
			out.Correct++
		case review.Answered:
			review.Status = domain.ReviewWrong
		default:
			review.Status = domain.ReviewNotAnswered
		}
		out.Review = append(out.Review, review)
	}
	out.Wrong = graded - out.Correct
	return out
}

// Percentage is the display percentage of the breakdown.
func (b Breakdown) Percentage() int {
	return domain.Percentage(b.Score, b.TotalPossible)
}
