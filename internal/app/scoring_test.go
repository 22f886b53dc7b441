package app_test

import (
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestScoreMixedQuiz(t *testing.T) {
	quiz := mixedQuiz()
	b := app.Score(quiz, domain.AnswerMap{"q1": "Paris", "q2": "Mars", "q3": "some text"})

	if b.Score != 1 || b.TotalPossible != 2 {
		t.Fatalf("expected 1/2, got %d/%d", b.Score, b.TotalPossible)
	}
	if b.Percentage() != 50 {
		t.Fatalf("expected 50%%, got %d", b.Percentage())
	}
	if b.Correct != 1 || b.Wrong != 1 {
		t.Fatalf("expected 1 correct 1 wrong, got %d/%d", b.Correct, b.Wrong)
	}

	want := []domain.ReviewStatus{domain.ReviewCorrect, domain.ReviewWrong, domain.ReviewUngraded}
	for i, status := range want {
		if b.Review[i].Status != status {
			t.Fatalf("question %d: expected %s, got %s", i+1, status, b.Review[i].Status)
		}
		if b.Review[i].Number != i+1 {
			t.Fatalf("question %d numbered %d", i+1, b.Review[i].Number)
		}
	}
	if b.Review[2].CorrectAnswer != "" || !b.Review[2].Answered {
		t.Fatalf("text review should be answered and carry no key: %+v", b.Review[2])
	}
}

func TestScoreTrueFalse(t *testing.T) {
	b := app.Score(trueFalseQuiz(), domain.AnswerMap{"tf": "True"})
	if b.Score != 3 || b.TotalPossible != 3 || b.Percentage() != 100 {
		t.Fatalf("expected 3/3 at 100%%, got %d/%d at %d%%", b.Score, b.TotalPossible, b.Percentage())
	}
}

func TestScoreIsExactMatch(t *testing.T) {
	quiz := trueFalseQuiz()
	for _, answer := range []string{"true", "True ", " True", "TRUE"} {
		if b := app.Score(quiz, domain.AnswerMap{"tf": answer}); b.Score != 0 {
			t.Fatalf("answer %q should not match", answer)
		}
	}
}

func TestScoreUnanswered(t *testing.T) {
	b := app.Score(mixedQuiz(), domain.AnswerMap{"q2": ""})
	if b.Score != 0 || b.TotalPossible != 2 {
		t.Fatalf("expected 0/2, got %d/%d", b.Score, b.TotalPossible)
	}
	for _, r := range b.Review[:2] {
		if r.Status != domain.ReviewNotAnswered {
			t.Fatalf("expected not answered, got %s for %s", r.Status, r.QuestionID)
		}
	}
	if b.Review[2].Answered {
		t.Fatalf("empty text answer should count as unanswered")
	}
	if b.Wrong != 2 {
		t.Fatalf("unanswered graded questions count as wrong, got %d", b.Wrong)
	}
}

func TestScoreNeverExceedsTotal(t *testing.T) {
	quizzes := []domain.Quiz{mixedQuiz(), trueFalseQuiz(), textOnlyQuiz()}
	answerSets := []domain.AnswerMap{
		{},
		{"q1": "Paris", "q2": "Earth", "q3": "x", "tf": "True", "t1": "essay"},
		{"q1": "paris", "tf": "False"},
	}
	for _, quiz := range quizzes {
		expectedTotal := 0
		for _, q := range quiz.Questions {
			if q.Kind != domain.KindText {
				expectedTotal += q.Points
			}
		}
		for _, answers := range answerSets {
			b := app.Score(quiz, answers)
			if b.TotalPossible != expectedTotal {
				t.Fatalf("%s: expected total %d, got %d", quiz.ID, expectedTotal, b.TotalPossible)
			}
			if b.Score > b.TotalPossible {
				t.Fatalf("%s: score %d exceeds total %d", quiz.ID, b.Score, b.TotalPossible)
			}
		}
	}
	if p := app.Score(textOnlyQuiz(), domain.AnswerMap{"t1": "essay"}).Percentage(); p != 0 {
		t.Fatalf("text-only quiz should score 0%%, got %d", p)
	}
}
