package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/quizgen/internal/ai"
	"github.com/mind-engage/quizgen/internal/grading"
	"github.com/mind-engage/quizgen/internal/platform/logger"
	syncx "github.com/mind-engage/quizgen/internal/sync"
)

// EventRecorder receives an entry for every generated quiz and recorded
// attempt. *syncx.EventRepo satisfies it.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, data any) error
}

// HintCache stores hints per quiz question. *hintcache.Redis satisfies it.
type HintCache interface {
	Get(ctx context.Context, quizID, questionID string) (string, bool, error)
	Set(ctx context.Context, quizID, questionID, hint string) error
}

type Options struct {
	// StrictParse rejects model output whose blocks do not have four
	// labelled options and an A-D answer.
	StrictParse bool
	// RetakeHideAnswers strips correct answers from Retake results.
	RetakeHideAnswers bool
	Events            EventRecorder
	Hints             HintCache
	Now               func() time.Time
	NewID             func() string
}

type Service struct {
	store  Store
	ai     ai.Completer
	grader grading.Grader
	log    *logger.Logger
	opts   Options
}

func NewService(store Store, completer ai.Completer, grader grading.Grader, log *logger.Logger, opts Options) *Service {
	if grader == nil {
		grader = grading.NewDefaultGrader()
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Service{store: store, ai: completer, grader: grader, log: log.With("service", "quiz"), opts: opts}
}

type GenerateInput struct {
	Grade          string
	Subject        string
	TotalQuestions int
	Difficulty     string
}

// Generate asks the model for a quiz, parses it and stores it with no
// attempts. Nothing is written unless every step succeeds.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (Quiz, error) {
	raw, err := s.ai.CompleteQuizPrompt(ctx, ai.QuizPrompt(in.Grade, in.Subject, in.TotalQuestions, in.Difficulty))
	if err != nil {
		return Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}

	parse := ParseQuestions
	if s.opts.StrictParse {
		parse = ParseQuestionsStrict
	}
	parsed, err := parse(raw)
	if err != nil {
		return Quiz{}, fmt.Errorf("parse model output: %w", err)
	}

	q := Quiz{
		ID:        s.opts.NewID(),
		Grade:     in.Grade,
		Subject:   in.Subject,
		Questions: make([]Question, 0, len(parsed)),
		Attempts:  []Attempt{},
		Date:      s.opts.Now().UTC(),
	}
	for _, p := range parsed {
		q.Questions = append(q.Questions, Question{
			ID:            s.opts.NewID(),
			Question:      p.Question,
			Options:       p.Options,
			CorrectAnswer: p.CorrectAnswer,
		})
	}
	if err := s.store.CreateQuiz(ctx, q); err != nil {
		return Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.record(ctx, syncx.TypeQuizGenerated, q.ID, map[string]any{
		"grade": q.Grade, "subject": q.Subject, "questions": len(q.Questions),
	})
	if len(q.Questions) != in.TotalQuestions {
		s.log.Warn("model returned a different question count",
			"quiz_id", q.ID, "requested", in.TotalQuestions, "parsed", len(q.Questions))
	}
	return q, nil
}

type Response struct {
	QuestionID   string
	UserResponse string
}

type SubmitInput struct {
	QuizID    string
	Responses []Response
}

type SubmitResult struct {
	QuizID      string          `json:"quizId"`
	Score       float64         `json:"score"`
	Message     string          `json:"message"`
	Details     []AttemptDetail `json:"details"`
	Suggestions []string        `json:"suggestions"`
}

// Submit grades responses against the stored quiz, appends the attempt,
// adds the quiz to the user's history and, when anything was wrong, asks
// the model for remediation suggestions.
//
// The score divides by the quiz's question count, not by the number of
// responses, so unanswered questions count as wrong. A question answered
// more than once is scored on its first response; every response is kept in
// the details.
func (s *Service) Submit(ctx context.Context, username string, in SubmitInput) (SubmitResult, error) {
	q, err := s.store.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}

	correct := 0
	details := make([]AttemptDetail, 0, len(in.Responses))
	var incorrect []ai.IncorrectItem
	// a question counts once toward the score however often it is answered
	graded := make(map[string]bool, len(q.Questions))
	for _, r := range in.Responses {
		question, ok := q.Question(r.QuestionID)
		if !ok {
			details = append(details, AttemptDetail{QuestionID: r.QuestionID, UserResponse: r.UserResponse})
			continue
		}
		res, err := s.grader.Grade(ctx, grading.Q{Type: grading.TypeMCQLetter, AnswerKey: question.CorrectAnswer}, r.UserResponse)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("grade question %s: %w", question.ID, err)
		}
		if !graded[question.ID] {
			graded[question.ID] = true
			if res.Correct {
				correct++
			} else {
				incorrect = append(incorrect, ai.IncorrectItem{
					Question:      question.Question,
					CorrectAnswer: answerOrNull(question.CorrectAnswer),
					UserResponse:  r.UserResponse,
				})
			}
		}
		var key *string
		if question.CorrectAnswer != "" {
			k := question.CorrectAnswer
			key = &k
		}
		details = append(details, AttemptDetail{
			QuestionID:    r.QuestionID,
			CorrectAnswer: key,
			UserResponse:  r.UserResponse,
			IsCorrect:     res.Correct,
		})
	}

	attempt := Attempt{
		Username: username,
		Score:    Score(correct, len(q.Questions)),
		Details:  details,
		Date:     s.opts.Now().UTC(),
	}
	if err := s.store.AppendAttempt(ctx, q.ID, attempt); err != nil {
		return SubmitResult{}, fmt.Errorf("save attempt: %w", err)
	}
	s.record(ctx, syncx.TypeAttemptRecorded, q.ID, map[string]any{
		"username": username, "score": attempt.Score, "responses": len(details),
	})

	if _, err := s.store.AddToHistory(ctx, username, q.ID); err != nil {
		return SubmitResult{}, err
	}

	var suggestions []string
	if len(incorrect) > 0 {
		text, err := s.ai.CompleteSuggestionPrompt(ctx, incorrect)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("suggestions: %w", err)
		}
		suggestions = strings.Split(text, "\n")
	}

	return SubmitResult{
		QuizID:      q.ID,
		Score:       attempt.Score,
		Message:     "Quiz evaluated and saved to quiz history",
		Details:     details,
		Suggestions: suggestions,
	}, nil
}

// answerOrNull renders a missing answer key the way the suggestion prompt
// has always shown it.
func answerOrNull(key string) string {
	if key == "" {
		return "null"
	}
	return key
}

// Score returns correct/total as a percentage; an empty quiz scores 0.
func Score(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// HistoryFilter narrows History results. Empty fields do not filter. The
// date range applies only when both bounds are set and matches quizzes
// with at least one attempt inside [From, To].
type HistoryFilter struct {
	Grade   string
	Subject string
	From    time.Time
	To      time.Time
}

func (f HistoryFilter) match(q Quiz) bool {
	if f.Grade != "" && q.Grade != f.Grade {
		return false
	}
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.From.IsZero() || f.To.IsZero() {
		return true
	}
	for _, a := range q.Attempts {
		if !a.Date.Before(f.From) && !a.Date.After(f.To) {
			return true
		}
	}
	return false
}

// History returns the quizzes in the user's history, oldest entry first,
// fetched in one batch.
func (s *Service) History(ctx context.Context, username string, f HistoryFilter) ([]Quiz, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.store.GetQuizzes(ctx, u.QuizHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if f.match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

type RetakeQuestion struct {
	QuestionID    string   `json:"questionId"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// Retake returns the quiz questions for another attempt. Correct answers
// are included unless Options.RetakeHideAnswers is set.
func (s *Service) Retake(ctx context.Context, quizID string) ([]RetakeQuestion, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	out := make([]RetakeQuestion, 0, len(q.Questions))
	for _, qq := range q.Questions {
		rq := RetakeQuestion{QuestionID: qq.ID, Question: qq.Question, Options: qq.Options}
		if !s.opts.RetakeHideAnswers {
			rq.CorrectAnswer = qq.CorrectAnswer
		}
		out = append(out, rq)
	}
	return out, nil
}

// Hint asks the model for a hint on one question of a stored quiz.
func (s *Service) Hint(ctx context.Context, quizID, questionID string) (string, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	question, ok := q.Question(questionID)
	if !ok {
		return "", ErrQuestionNotFound
	}

	if s.opts.Hints != nil {
		hint, hit, err := s.opts.Hints.Get(ctx, quizID, questionID)
		if err != nil {
			s.log.Warn("hint cache read failed", "quiz_id", quizID, "error", err)
		} else if hit {
			return hint, nil
		}
	}

	hint, err := s.ai.CompleteQuizPrompt(ctx, ai.HintPrompt(question.Question))
	if err != nil {
		return "", fmt.Errorf("generate hint: %w", err)
	}
	if s.opts.Hints != nil && hint != "" {
		if err := s.opts.Hints.Set(ctx, quizID, questionID, hint); err != nil {
			s.log.Warn("hint cache write failed", "quiz_id", quizID, "error", err)
		}
	}
	return hint, nil
}

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if s.opts.Events == nil {
		return
	}
	if err := s.opts.Events.Record(ctx, typ, key, data); err != nil {
		s.log.Warn("event log append failed", "type", typ, "quiz_id", key, "error", err)
	}
}
