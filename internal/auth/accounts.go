package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/quizgen/internal/auth/middleware"
	"github.com/mind-engage/quizgen/internal/quiz"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the part of quiz.Store that accounts need.
type UserStore interface {
	CreateUser(ctx context.Context, u quiz.User) error
	GetUserByUsername(ctx context.Context, username string) (quiz.User, error)
}

// Accounts registers users and exchanges credentials for tokens.
type Accounts struct {
	users  UserStore
	tokens *authmw.AuthService
	// autoRegister creates unknown users on login instead of rejecting them.
	autoRegister bool
	cost         int
}

func NewAccounts(users UserStore, tokens *authmw.AuthService, autoRegister bool) *Accounts {
	return &Accounts{users: users, tokens: tokens, autoRegister: autoRegister, cost: 12}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (a *Accounts) WithBcryptCost(cost int) *Accounts {
	a.cost = cost
	return a
}

// Register creates a user with a bcrypt password hash and returns a token.
func (a *Accounts) Register(ctx context.Context, username, password string) (string, quiz.User, error) {
	username = strings.TrimSpace(username)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", quiz.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := quiz.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		QuizHistory:  []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.CreateUser(ctx, u); err != nil {
		return "", quiz.User{}, err
	}
	tok, err := a.tokens.IssueJWT(u.ID, u.Username)
	if err != nil {
		return "", quiz.User{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

// Login checks the password of an existing user. Unknown usernames are
// registered when auto-registration is on, otherwise rejected.
func (a *Accounts) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	u, err := a.users.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, quiz.ErrUserNotFound):
		if !a.autoRegister {
			return "", ErrInvalidCredentials
		}
		tok, _, err := a.Register(ctx, username, password)
		if errors.Is(err, quiz.ErrUserExists) {
			// lost a race with a concurrent first login
			return a.Login(ctx, username, password)
		}
		return tok, err
	case err != nil:
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return a.tokens.IssueJWT(u.ID, u.Username)
}
