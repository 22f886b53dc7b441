package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz is unknown to the catalog or has no questions.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates the quiz definition cannot be taken (bad kind, points or ids).
	ErrInvalidQuiz = errors.New("invalid quiz definition")
	// ErrSessionNotFound is returned when no session exists for a quiz and identity.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when a terminated session is asked for something it cannot give.
	ErrSessionClosed = errors.New("quiz session closed")
)
