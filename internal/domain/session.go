package domain

import (
	"fmt"
	"math"
	"time"
)

// SnapshotKey scopes a snapshot to one participant's attempt at one quiz.
type SnapshotKey struct {
	QuizID   string
	Identity string
}

// String renders the storage key, e.g. quiz_42_alice.
func (k SnapshotKey) String() string {
	return "quiz_" + k.QuizID + "_" + k.Identity
}

// Snapshot is the durable projection of an active session.
type Snapshot struct {
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Answers              AnswerMap `json:"answers"`
	TimeRemaining        int       `json:"timeRemaining"`
	QuizID               string    `json:"quizId"`
	Identity             string    `json:"identity"`
}

// Key returns the key the snapshot is stored under.
func (s Snapshot) Key() SnapshotKey {
	return SnapshotKey{QuizID: s.QuizID, Identity: s.Identity}
}

// ReviewStatus classifies a question in the result review.
type ReviewStatus string

const (
	ReviewCorrect     ReviewStatus = "correct"
	ReviewWrong       ReviewStatus = "wrong"
	ReviewNotAnswered ReviewStatus = "not_answered"
	ReviewUngraded    ReviewStatus = "ungraded"
)

// QuestionReview is the per-question line of a result.
type QuestionReview struct {
	Number        int          `json:"number"`
	QuestionID    string       `json:"questionId"`
	Kind          QuestionKind `json:"type"`
	Prompt        string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	Answer        string       `json:"answer,omitempty"`
	Answered      bool         `json:"answered"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Points        int          `json:"points"`
	Awarded       int          `json:"awarded"`
	Status        ReviewStatus `json:"status"`
}

// Result is the immutable outcome of a submitted session.
type Result struct {
	SessionID     string           `json:"sessionId"`
	Score         int              `json:"score"`
	TotalPossible int              `json:"totalPossible"`
	Percentage    int              `json:"percentage"`
	Correct       int              `json:"correctAnswers"`
	Wrong         int              `json:"wrongAnswers"`
	Answers       AnswerMap        `json:"answers"`
	Quiz          Quiz             `json:"quiz"`
	Review        []QuestionReview `json:"review"`
	AutoSubmitted bool             `json:"autoSubmitted"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}

// Clone returns a copy that shares no mutable state with r.
func (r Result) Clone() Result {
	out := r
	out.Answers = r.Answers.Clone()
	out.Review = append([]QuestionReview(nil), r.Review...)
	return out
}

// Verdict is the headline shown next to the percentage.
func (r Result) Verdict() string {
	switch {
	case r.Percentage >= 80:
		return "Excellent!"
	case r.Percentage >= 60:
		return "Good Job!"
	case r.Percentage >= 40:
		return "Not Bad!"
	default:
		return "Keep Practicing!"
	}
}

// Percentage rounds score/total to a whole percent, 0 when nothing is graded.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// QuestionView is a question as shown to a participant; the correct answer is withheld.
type QuestionView struct {
	Number  int          `json:"number"`
	ID      string       `json:"id"`
	Kind    QuestionKind `json:"type"`
	Prompt  string       `json:"question"`
	Options []string     `json:"options,omitempty"`
	Points  int          `json:"points"`
	Answer  string       `json:"answer,omitempty"`
}

// SessionState is a read-only view of a session for the UI.
type SessionState struct {
	SessionID     string       `json:"sessionId"`
	QuizID        string       `json:"quizId"`
	Identity      string       `json:"identity"`
	Title         string       `json:"title"`
	Status        Status       `json:"status"`
	Index         int          `json:"currentQuestionIndex"`
	QuestionCount int          `json:"questionCount"`
	Question      QuestionView `json:"currentQuestion"`
	IsLast        bool         `json:"isLast"`
	Progress      int          `json:"progress"`
	Remaining     int          `json:"timeRemaining"`
	Clock         string       `json:"clock"`
	Answered      []bool       `json:"answered"`
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// EventType names a session event.
type EventType string

const (
	EventState     EventType = "state"
	EventTick      EventType = "tick"
	EventResult    EventType = "result"
	EventAbandoned EventType = "abandoned"
)

// SessionEvent is pushed to subscribers when a session changes.
type SessionEvent struct {
	Type   EventType    `json:"type"`
	State  SessionState `json:"state"`
	Result *Result      `json:"result,omitempty"`
}
