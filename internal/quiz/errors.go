package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrUserExists       = errors.New("user already exists")
	// ErrNoQuestions means the model response contained no numbered blocks.
	ErrNoQuestions = errors.New("no questions in model response")
)

// MalformedBlockError describes a question block that does not follow the
// expected "N. question / A) .. D) / **Answer:** X)" layout.
type MalformedBlockError struct {
	Index  int // zero-based block position
	Reason string
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("malformed question block %d: %s", e.Index+1, e.Reason)
}
