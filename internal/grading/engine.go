package grading

import (
	"context"
	"strings"
)

// TypeMCQLetter is a four-option question answered with a single letter.
const TypeMCQLetter = "mcq_letter"

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type      string
	AnswerKey string
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct  bool
	Feedback []string // optional notes
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response string) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response string) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response string) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, response)
}

// Engine options

type Option func(*config)

type config struct {
	FoldLetters bool // accept " c" or "C) 3" for key "C"
}

func WithFoldLetters(b bool) Option { return func(c *config) { c.FoldLetters = b } }

// NewDefaultGrader installs built-in strategies. Without options a response
// is correct only when it equals the stored key byte for byte.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	var letter Strategy = exactLetterStrategy{}
	if cfg.FoldLetters {
		letter = foldedLetterStrategy{}
	}
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeMCQLetter: letter,
		},
	}
}

// --- Strategies ---

type exactLetterStrategy struct{}

func (exactLetterStrategy) Grade(_ context.Context, q Q, response string) (Result, error) {
	return Result{Correct: q.AnswerKey != "" && response == q.AnswerKey}, nil
}

type foldedLetterStrategy struct{}

func (foldedLetterStrategy) Grade(_ context.Context, q Q, response string) (Result, error) {
	res := Result{}
	key := strings.TrimSpace(q.AnswerKey)
	resp := leadingLetter(response)
	if key == "" || resp == "" {
		return res, nil
	}
	res.Correct = strings.EqualFold(resp, key)
	if res.Correct && response != q.AnswerKey {
		res.Feedback = append(res.Feedback, "accepted after normalization")
	}
	return res, nil
}

// leadingLetter returns the option letter from "c", " C ", "C)" or "C) 3".
func leadingLetter(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) == 1 {
		return s
	}
	if s[1] == ')' || s[1] == '.' || s[1] == ' ' {
		return s[:1]
	}
	return s
}
