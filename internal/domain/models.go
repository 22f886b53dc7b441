package domain

import (
	"fmt"
	"strings"
)

// QuestionKind is the closed set of question variants.
type QuestionKind int

const (
	KindMultipleChoice QuestionKind = iota + 1
	KindTrueFalse
	KindText
)

// TrueFalseOptions are the fixed options of a TrueFalse question.
var TrueFalseOptions = []string{"True", "False"}

func (k QuestionKind) String() string {
	switch k {
	case KindMultipleChoice:
		return "MCQ"
	case KindTrueFalse:
		return "True/False"
	case KindText:
		return "Text"
	}
	return fmt.Sprintf("QuestionKind(%d)", int(k))
}

// Graded reports whether answers to this kind count towards the score.
func (k QuestionKind) Graded() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse:
		return true
	case KindText:
		return false
	}
	return false
}

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindText:
		return true
	}
	return false
}

func (k QuestionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown question kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts both the display labels and snake_case names.
func (k *QuestionKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "mcq", "multiple_choice", "multiplechoice":
		*k = KindMultipleChoice
	case "true/false", "true_false", "truefalse":
		*k = KindTrueFalse
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown question kind %q", string(text))
	}
	return nil
}

// Question is a single quiz item. Options are empty for Text questions.
type Question struct {
	ID            string       `json:"id" yaml:"id" validate:"required"`
	Kind          QuestionKind `json:"type" yaml:"type" validate:"required"`
	Prompt        string       `json:"question" yaml:"question" validate:"required"`
	Options       []string     `json:"options,omitempty" yaml:"options" validate:"required_if=Kind 1"`
	CorrectAnswer string       `json:"correctAnswer,omitempty" yaml:"correctAnswer" validate:"required_unless=Kind 3"`
	Points        int          `json:"points" yaml:"points" validate:"gt=0"`
}

// Quiz is an immutable quiz definition; question order is navigation order.
type Quiz struct {
	ID         string     `json:"id" yaml:"id" validate:"required"`
	Title      string     `json:"title" yaml:"title" validate:"required"`
	Category   string     `json:"category,omitempty" yaml:"category"`
	Difficulty string     `json:"difficulty,omitempty" yaml:"difficulty"`
	Duration   int        `json:"duration" yaml:"duration" validate:"gt=0"` // minutes
	Questions  []Question `json:"questions" yaml:"questions" validate:"dive"`
}

// HasQuestion reports whether id belongs to the quiz.
func (q Quiz) HasQuestion(id string) bool {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return true
		}
	}
	return false
}

// Check rejects unknown kinds, non-positive points, duplicate question ids and
// choice questions whose correct answer is not one of their options.
func (q Quiz) Check() error {
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if !question.Kind.Valid() {
			return fmt.Errorf("%w: question %d has unknown kind", ErrInvalidQuiz, i+1)
		}
		if question.Points <= 0 {
			return fmt.Errorf("%w: question %q must be worth at least one point", ErrInvalidQuiz, question.ID)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuiz, question.ID)
		}
		seen[question.ID] = struct{}{}
		if question.Kind.Graded() && !question.hasOption(question.CorrectAnswer) {
			return fmt.Errorf("%w: question %q correct answer %q is not an option", ErrInvalidQuiz, question.ID, question.CorrectAnswer)
		}
	}
	return nil
}

// hasOption reports whether value is one of the question's options. A
// TrueFalse question without explicit options uses TrueFalseOptions.
func (q Question) hasOption(value string) bool {
	options := q.Options
	if q.Kind == KindTrueFalse && len(options) == 0 {
		options = TrueFalseOptions
	}
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// AnswerMap maps question ids to submitted values.
type AnswerMap map[string]string

// Clone returns an independent copy; a nil map clones to an empty one.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Answered reports whether a non-empty value was given for id.
func (m AnswerMap) Answered(id string) bool {
	return m[id] != ""
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusSubmitted Status = "submitted"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether no further mutation is possible.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusAbandoned
}
