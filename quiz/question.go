package quiz

import (
	"errors"
	"fmt"
)

const (
	minOptions = 2
	maxOptions = 6
)

var (
	// ErrNoQuestions is returned when an attempt is constructed without
	// questions.
	ErrNoQuestions = errors.New("attempt requires at least one question")
	// ErrBadOptionCount is returned when a question carries fewer than two
	// or more than six options.
	ErrBadOptionCount = errors.New("question must have between 2 and 6 options")
	// ErrCorrectNotInOptions is returned when the correct answer is not one
	// of the question's options.
	ErrCorrectNotInOptions = errors.New("correct answer must be one of the options")
)

// Question is a read-only quiz item. Options are compared by value; input
// does not guarantee uniqueness.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Validate checks the option count and that CorrectAnswer appears among
// Options.
func (q Question) Validate() error {
	if len(q.Options) < minOptions || len(q.Options) > maxOptions {
		return fmt.Errorf("question %s: %w", q.ID, ErrBadOptionCount)
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return nil
		}
	}
	return fmt.Errorf("question %s: %w", q.ID, ErrCorrectNotInOptions)
}
