package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/quizgen/internal/auth"
	authmw "github.com/mind-engage/quizgen/internal/auth/middleware"
	"github.com/mind-engage/quizgen/internal/platform/apierr"
	"github.com/mind-engage/quizgen/internal/platform/logger"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if err := decodeJSON(r, &c, true); err != nil {
		return c, err
	}
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return c, apierr.New(http.StatusBadRequest, "Username and password required", nil)
	}
	return c, nil
}

// setTokenCookie mirrors the bearer token into the cookie JWTMiddleware
// falls back to.
func setTokenCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authmw.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(authmw.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoginHandler POST /auth/login
func LoginHandler(accounts *auth.Accounts, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := readCredentials(r)
		if err != nil {
			writeError(w, log, err, "Error logging in")
			return
		}
		tok, err := accounts.Login(r.Context(), c.Username, c.Password)
		if err != nil {
			writeError(w, log, err, "Error logging in")
			return
		}
		setTokenCookie(w, r, tok)
		writeJSON(w, http.StatusOK, tokenResponse{Token: tok})
	}
}

// RegisterHandler POST /auth/register
func RegisterHandler(accounts *auth.Accounts, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := readCredentials(r)
		if err != nil {
			writeError(w, log, err, "Error registering user")
			return
		}
		tok, u, err := accounts.Register(r.Context(), c.Username, c.Password)
		if err != nil {
			writeError(w, log, err, "Error registering user")
			return
		}
		log.Info("user registered", "user_id", u.ID, "username", u.Username)
		setTokenCookie(w, r, tok)
		writeJSON(w, http.StatusCreated, tokenResponse{Token: tok})
	}
}
