package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/quizgen/internal/auth/middleware"
	"github.com/mind-engage/quizgen/internal/platform/apierr"
	"github.com/mind-engage/quizgen/internal/platform/logger"
	"github.com/mind-engage/quizgen/internal/quiz"
)

const defaultDifficulty = "medium"

type generateRequest struct {
	Grade          flexString `json:"grade" validate:"required"`
	Subject        string     `json:"subject" validate:"required"`
	TotalQuestions flexInt    `json:"totalQuestions" validate:"required,gte=1,lte=50"`
	Difficulty     string     `json:"difficulty"`
}

type quizResponse struct {
	Quiz quiz.Quiz `json:"quiz"`
}

// GenerateQuizHandler POST /quiz/generate
func GenerateQuizHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	const failure = "Error generating quiz from AI"
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := decodeJSON(r, &req, false); err != nil {
			writeError(w, log, err, failure)
			return
		}
		difficulty := strings.TrimSpace(req.Difficulty)
		if difficulty == "" {
			difficulty = defaultDifficulty
		}
		q, err := svc.Generate(r.Context(), quiz.GenerateInput{
			Grade:          strings.TrimSpace(string(req.Grade)),
			Subject:        strings.TrimSpace(req.Subject),
			TotalQuestions: int(req.TotalQuestions),
			Difficulty:     difficulty,
		})
		if err != nil {
			writeError(w, log, err, failure)
			return
		}
		writeJSON(w, http.StatusCreated, quizResponse{Quiz: q})
	}
}

type submitRequest struct {
	QuizID    string `json:"quizId" validate:"required"`
	Responses []struct {
		QuestionID   string `json:"questionId"`
		UserResponse string `json:"userResponse"`
	} `json:"responses"`
}

// SubmitQuizHandler POST /quiz/submit
func SubmitQuizHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	const failure = "Error evaluating quiz"
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := decodeJSON(r, &req, false); err != nil {
			writeError(w, log, err, failure)
			return
		}
		in := quiz.SubmitInput{QuizID: req.QuizID, Responses: make([]quiz.Response, 0, len(req.Responses))}
		for _, resp := range req.Responses {
			in.Responses = append(in.Responses, quiz.Response{QuestionID: resp.QuestionID, UserResponse: resp.UserResponse})
		}
		res, err := svc.Submit(r.Context(), authmw.UsernameFromContext(r.Context()), in)
		if err != nil {
			writeError(w, log, err, failure)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type historyResponse struct {
	Quizzes []quiz.Quiz `json:"quizzes"`
}

// parseDate accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func historyFilter(r *http.Request) (quiz.HistoryFilter, error) {
	q := r.URL.Query()
	f := quiz.HistoryFilter{
		Grade:   strings.TrimSpace(q.Get("grade")),
		Subject: strings.TrimSpace(q.Get("subject")),
	}
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		return f, nil
	}
	var err error
	if f.From, err = parseDate(from, false); err != nil {
		return f, apierr.New(http.StatusBadRequest, "Invalid from date", err)
	}
	if f.To, err = parseDate(to, true); err != nil {
		return f, apierr.New(http.StatusBadRequest, "Invalid to date", err)
	}
	return f, nil
}

// HistoryHandler GET /quiz/history?grade=&subject=&from=&to=
func HistoryHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	const failure = "Error retrieving quiz history"
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := historyFilter(r)
		if err != nil {
			writeError(w, log, err, failure)
			return
		}
		quizzes, err := svc.History(r.Context(), authmw.UsernameFromContext(r.Context()), f)
		if err != nil {
			writeError(w, log, err, failure)
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{Quizzes: quizzes})
	}
}

type retakeResponse struct {
	Message   string                `json:"message"`
	Questions []quiz.RetakeQuestion `json:"questions"`
}

// RetakeHandler GET /quiz/retake. The quiz id comes from ?quizId= or, for
// older clients, a JSON body on the GET.
func RetakeHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	const failure = "Error fetching quiz questions"
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(r.URL.Query().Get("quizId"))
		if quizID == "" {
			var body struct {
				QuizID string `json:"quizId"`
			}
			if err := decodeJSON(r, &body, true); err != nil {
				writeError(w, log, err, failure)
				return
			}
			quizID = strings.TrimSpace(body.QuizID)
		}
		if quizID == "" {
			writeError(w, log, apierr.New(http.StatusBadRequest, "quizId required", nil), failure)
			return
		}
		questions, err := svc.Retake(r.Context(), quizID)
		if err != nil {
			writeError(w, log, err, failure)
			return
		}
		writeJSON(w, http.StatusOK, retakeResponse{Message: "Quiz questions fetched for retake", Questions: questions})
	}
}

type hintResponse struct {
	QuestionID string `json:"questionId"`
	Hint       string `json:"hint"`
}

// HintHandler POST /quiz/{quizId}/hint/{questionId}
func HintHandler(svc *quiz.Service, log *logger.Logger) http.HandlerFunc {
	const failure = "Error generating hint"
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizId")
		questionID := chi.URLParam(r, "questionId")
		hint, err := svc.Hint(r.Context(), quizID, questionID)
		if err != nil {
			writeError(w, log, err, failure)
			return
		}
		writeJSON(w, http.StatusOK, hintResponse{QuestionID: questionID, Hint: hint})
	}
}
