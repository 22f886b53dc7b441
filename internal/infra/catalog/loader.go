// Package catalog reads quiz definitions from a YAML (or JSON) file.
package catalog

import (
	"fmt"
	"os"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type file struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

var validate = validator.New()

// Load parses and validates the catalog at path. A quiz without questions is
// accepted here; starting it fails with domain.ErrQuizNotFound.
func Load(path string) (map[string]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes catalog content.
func Parse(data []byte) (map[string]domain.Quiz, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	quizzes := make(map[string]domain.Quiz, len(f.Quizzes))
	for _, quiz := range f.Quizzes {
		if err := validate.Struct(quiz); err != nil {
			return nil, fmt.Errorf("quiz %q: %w", quiz.ID, err)
		}
		normalize(&quiz)
		if err := quiz.Check(); err != nil {
			return nil, fmt.Errorf("quiz %q: %w", quiz.ID, err)
		}
		if _, dup := quizzes[quiz.ID]; dup {
			return nil, fmt.Errorf("duplicate quiz id %q", quiz.ID)
		}
		quizzes[quiz.ID] = quiz
	}
	return quizzes, nil
}

// NewLoader returns a static loader over the catalog at path.
func NewLoader(path string) (*memory.StaticQuizLoader, error) {
	quizzes, err := Load(path)
	if err != nil {
		return nil, err
	}
	return memory.NewStaticQuizLoader(quizzes), nil
}

func normalize(quiz *domain.Quiz) {
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		switch q.Kind {
		case domain.KindTrueFalse:
			q.Options = append([]string(nil), domain.TrueFalseOptions...)
		case domain.KindText:
			q.Options = nil
			q.CorrectAnswer = ""
		}
	}
}
