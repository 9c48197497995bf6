package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeEndpoint serves /v1/chat/completions and records the last request.
func fakeEndpoint(t *testing.T, reply string, choices bool) (*httptest.Server, *chatRequest) {
	t.Helper()
	var last chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&last); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{"id": "cmpl-1", "object": "chat.completion", "model": last.Model, "choices": []any{}}
		if choices {
			body["choices"] = []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}}
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestCompleteQuizPrompt(t *testing.T) {
	srv, last := fakeEndpoint(t, "1. Q?", true)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "llama3-8b-8192"}, nil)

	got, err := c.CompleteQuizPrompt(context.Background(), "make a quiz")
	if err != nil {
		t.Fatal(err)
	}
	if got != "1. Q?" {
		t.Fatalf("got %q", got)
	}
	if last.Model != "llama3-8b-8192" {
		t.Fatalf("model %q", last.Model)
	}
	if len(last.Messages) != 1 || last.Messages[0].Role != "user" || last.Messages[0].Content != "make a quiz" {
		t.Fatalf("messages %+v", last.Messages)
	}
}

func TestCompleteSuggestionPromptSendsEveryItem(t *testing.T) {
	srv, last := fakeEndpoint(t, "- review addition\n- practice", true)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "m"}, nil)

	items := []IncorrectItem{
		{Question: "2+2?", CorrectAnswer: "B", UserResponse: "A"},
		{Question: "3+3?", CorrectAnswer: "D", UserResponse: "C"},
	}
	got, err := c.CompleteSuggestionPrompt(context.Background(), items)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "practice") {
		t.Fatalf("got %q", got)
	}
	sent := last.Messages[0].Content
	for _, want := range []string{
		"Question: 2+2?\nCorrect Answer: B\nUser's Response: A\n\nQuestion: 3+3?",
		"exactly 2 to 3 specific suggestions",
	} {
		if !strings.Contains(sent, want) {
			t.Errorf("prompt missing %q:\n%s", want, sent)
		}
	}
}

func TestEmptyChoicesYieldEmptyText(t *testing.T) {
	srv, _ := fakeEndpoint(t, "", false)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "m"}, nil)
	got, err := c.CompleteQuizPrompt(context.Background(), "x")
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestUpstreamFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "m"}, nil)
	if _, err := c.CompleteQuizPrompt(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMissingKeyIsUnavailable(t *testing.T) {
	c := NewClient(Config{Model: "m"}, nil)
	if _, err := c.CompleteQuizPrompt(context.Background(), "x"); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("err=%v", err)
	}
}

func TestQuizPromptCarriesParameters(t *testing.T) {
	p := QuizPrompt("5", "math", 3, "easy")
	if !strings.Contains(p, "Generate 3 quiz questions with answers for math at grade 5 level with easy difficulty.") {
		t.Fatalf("prompt:\n%s", p)
	}
	if !strings.Contains(p, "**Answer:** C) 3") {
		t.Fatal("example answer line missing")
	}
	if h := HintPrompt("Why?"); !strings.Contains(h, `[Question: "Why?"]`) {
		t.Fatalf("hint prompt: %s", h)
	}
}
