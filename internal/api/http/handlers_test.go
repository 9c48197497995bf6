package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/quizgen/internal/ai"
	"github.com/mind-engage/quizgen/internal/auth"
	authmw "github.com/mind-engage/quizgen/internal/auth/middleware"
	"github.com/mind-engage/quizgen/internal/grading"
	"github.com/mind-engage/quizgen/internal/quiz"
)

/* ---------------- fakes ---------------- */

type fakeAI struct {
	suggestionCalls [][]ai.IncorrectItem
	// deadlines records whether each quiz prompt ran under a context deadline.
	deadlines []bool
}

const modelQuiz = `Sure:
1. What is 1 + 1?
A) 1
B) 2
C) 3
D) 4
**Answer:** B) 2
2. What is 2 + 2?
A) 2
B) 3
C) 4
D) 5
**Answer:** C) 4
3. What is 3 + 3?
A) 6
B) 7
C) 8
D) 9
**Answer:** A) 6
`

func (f *fakeAI) CompleteQuizPrompt(ctx context.Context, prompt string) (string, error) {
	_, has := ctx.Deadline()
	f.deadlines = append(f.deadlines, has)
	if strings.HasPrefix(prompt, "Provide a hint") {
		return "Count on your fingers.", nil
	}
	return modelQuiz, nil
}

func (f *fakeAI) CompleteSuggestionPrompt(_ context.Context, items []ai.IncorrectItem) (string, error) {
	f.suggestionCalls = append(f.suggestionCalls, items)
	return "Review doubling.\nPractice sums.", nil
}

type testServer struct {
	h  http.Handler
	ai *fakeAI
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := quiz.NewInMemoryStore()
	fake := &fakeAI{}
	tokens := authmw.NewAuthService("test-secret")
	svc := quiz.NewService(store, fake, grading.NewDefaultGrader(), nil, quiz.Options{})
	accounts := auth.NewAccounts(store, tokens, true).WithBcryptCost(bcrypt.MinCost)
	return &testServer{
		h: NewRouter(Deps{
			Quiz:       svc,
			Accounts:   accounts,
			Tokens:     tokens,
			CORSOrigin: "http://localhost:3000",
		}),
		ai: fake,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out tokenResponse
	decode(t, rec, &out)
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return out.Token
}

func (s *testServer) generate(t *testing.T, token string) quiz.Quiz {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/quiz/generate", token,
		`{"grade":5,"subject":"math","totalQuestions":3,"difficulty":"easy"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out quizResponse
	decode(t, rec, &out)
	return out.Quiz
}

func wantMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status=%d want %d body=%s", rec.Code, status, rec.Body.String())
	}
	var m message
	decode(t, rec, &m)
	if m.Message != msg {
		t.Fatalf("message=%q want %q", m.Message, msg)
	}
}

/* ---------------- tests ---------------- */

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "amy", "password": "x"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authmw.TokenCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("token cookie not set: %v", rec.Result().Cookies())
	}

	s.login(t, "amy", "x")
	wantMessage(t, s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "amy", "password": "nope"}),
		http.StatusUnauthorized, "Invalid username or password")
	wantMessage(t, s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "amy"}),
		http.StatusBadRequest, "Username and password required")
	wantMessage(t, s.do(t, http.MethodPost, "/auth/login", "", nil),
		http.StatusBadRequest, "Username and password required")
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "bob", "password": "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	wantMessage(t, s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "bob", "password": "pw"}),
		http.StatusConflict, "Username already taken")
}

func TestQuizRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/quiz/generate"},
		{http.MethodPost, "/quiz/submit"},
		{http.MethodGet, "/quiz/history"},
		{http.MethodGet, "/quiz/retake?quizId=x"},
		{http.MethodPost, "/quiz/x/hint/y"},
	} {
		rec := s.do(t, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status=%d", tc.method, tc.path, rec.Code)
		}
	}
	if rec := s.do(t, http.MethodGet, "/quiz/history", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status=%d", rec.Code)
	}
}

func TestGenerateSubmitHistoryRetake(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t, "amy", "x")

	q := s.generate(t, tok)
	if len(q.Questions) != 3 || q.Attempts == nil || len(q.Attempts) != 0 {
		t.Fatalf("quiz=%+v", q)
	}
	if q.Grade != "5" || q.Subject != "math" || q.Questions[2].CorrectAnswer != "A" {
		t.Fatalf("quiz=%+v", q)
	}

	rec := s.do(t, http.MethodPost, "/quiz/submit", tok, map[string]any{
		"quizId": q.ID,
		"responses": []map[string]string{
			{"questionId": q.Questions[0].ID, "userResponse": "B"},
			{"questionId": q.Questions[1].ID, "userResponse": "C"},
			{"questionId": q.Questions[2].ID, "userResponse": "D"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status=%d body=%s", rec.Code, rec.Body.String())
	}
	var res quiz.SubmitResult
	decode(t, rec, &res)
	if math.Abs(res.Score-66.666) > 0.01 {
		t.Fatalf("score=%v", res.Score)
	}
	if res.Message != "Quiz evaluated and saved to quiz history" || len(res.Suggestions) != 2 {
		t.Fatalf("result=%+v", res)
	}
	if len(s.ai.suggestionCalls) != 1 || len(s.ai.suggestionCalls[0]) != 1 {
		t.Fatalf("suggestion calls=%v", s.ai.suggestionCalls)
	}

	rec = s.do(t, http.MethodGet, "/quiz/history", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status=%d", rec.Code)
	}
	var hist historyResponse
	decode(t, rec, &hist)
	if len(hist.Quizzes) != 1 || hist.Quizzes[0].ID != q.ID || len(hist.Quizzes[0].Attempts) != 1 {
		t.Fatalf("history=%+v", hist)
	}

	rec = s.do(t, http.MethodGet, "/quiz/history?subject=history", tok, nil)
	decode(t, rec, &hist)
	if len(hist.Quizzes) != 0 {
		t.Fatalf("filtered history=%+v", hist)
	}
	if rec := s.do(t, http.MethodGet, "/quiz/history?from=yesterday&to=2026-01-01", tok, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status=%d", rec.Code)
	}

	for _, rec := range []*httptest.ResponseRecorder{
		s.do(t, http.MethodGet, "/quiz/retake?quizId="+q.ID, tok, nil),
		s.do(t, http.MethodGet, "/quiz/retake", tok, map[string]string{"quizId": q.ID}),
	} {
		if rec.Code != http.StatusOK {
			t.Fatalf("retake status=%d body=%s", rec.Code, rec.Body.String())
		}
		var rt retakeResponse
		decode(t, rec, &rt)
		if rt.Message != "Quiz questions fetched for retake" || len(rt.Questions) != 3 || rt.Questions[0].QuestionID != q.Questions[0].ID {
			t.Fatalf("retake=%+v", rt)
		}
	}

	rec = s.do(t, http.MethodPost, "/quiz/"+q.ID+"/hint/"+q.Questions[0].ID, tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("hint status=%d", rec.Code)
	}
	var hint hintResponse
	decode(t, rec, &hint)
	if hint.QuestionID != q.Questions[0].ID || hint.Hint != "Count on your fingers." {
		t.Fatalf("hint=%+v", hint)
	}
}

func TestNotFoundAndValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t, "amy", "x")
	q := s.generate(t, tok)

	wantMessage(t, s.do(t, http.MethodPost, "/quiz/submit", tok, map[string]any{"quizId": "missing", "responses": []any{}}),
		http.StatusNotFound, "Quiz not found")
	wantMessage(t, s.do(t, http.MethodGet, "/quiz/retake?quizId=missing", tok, nil),
		http.StatusNotFound, "Quiz not found")
	wantMessage(t, s.do(t, http.MethodPost, "/quiz/missing/hint/q", tok, nil),
		http.StatusNotFound, "Quiz not found")
	wantMessage(t, s.do(t, http.MethodPost, "/quiz/"+q.ID+"/hint/missing", tok, nil),
		http.StatusNotFound, "Question not found")

	if rec := s.do(t, http.MethodPost, "/quiz/generate", tok, `{"grade":"5","totalQuestions":3}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing subject status=%d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/quiz/generate", tok, `{"grade":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status=%d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/quiz/retake", tok, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("retake without id status=%d", rec.Code)
	}

	big := `{"quizId":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	if rec := s.do(t, http.MethodPost, "/quiz/submit", tok, big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body status=%d", rec.Code)
	}
}

func TestModelCallsHaveNoServerDeadline(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t, "amy", "x")
	q := s.generate(t, tok)
	if rec := s.do(t, http.MethodPost, "/quiz/"+q.ID+"/hint/"+q.Questions[0].ID, tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("hint status=%d", rec.Code)
	}
	if len(s.ai.deadlines) != 2 {
		t.Fatalf("calls=%d", len(s.ai.deadlines))
	}
	for i, has := range s.ai.deadlines {
		if has {
			t.Errorf("call %d ran with a deadline", i)
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz"} {
		if rec := s.do(t, http.MethodGet, p, "", nil); rec.Code != http.StatusOK {
			t.Errorf("%s status=%d", p, rec.Code)
		}
	}
}
