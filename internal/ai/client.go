package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mind-engage/quizgen/internal/platform/logger"
)

// ErrAIUnavailable is returned when no API key was configured.
var ErrAIUnavailable = errors.New("ai completion is not configured")

// Completer is the text-completion surface the quiz service depends on.
type Completer interface {
	// CompleteQuizPrompt sends prompt as a single user message and returns
	// the first choice's text. Used for quiz generation and hints.
	CompleteQuizPrompt(ctx context.Context, prompt string) (string, error)
	// CompleteSuggestionPrompt asks for remediation advice on items.
	CompleteSuggestionPrompt(ctx context.Context, items []IncorrectItem) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string // OpenAI-compatible endpoint, e.g. https://api.groq.com/openai/v1
	Model   string
}

// Client talks to an OpenAI-compatible chat completion endpoint with a
// fixed model. It does not retry.
type Client struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{model: cfg.Model, log: log.With("component", "ai")}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	c.client = openai.NewClientWithConfig(oc)
	return c
}

func (c *Client) disabled() bool {
	return c.client == nil || c.model == ""
}

func (c *Client) CompleteQuizPrompt(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *Client) CompleteSuggestionPrompt(ctx context.Context, items []IncorrectItem) (string, error) {
	return c.complete(ctx, SuggestionPrompt(items))
}

func (c *Client) complete(ctx context.Context, content string) (string, error) {
	if c.disabled() {
		return "", ErrAIUnavailable
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	c.log.Debug("chat completion",
		"model", c.model,
		"usage_in", resp.Usage.PromptTokens,
		"usage_out", resp.Usage.CompletionTokens,
	)
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
