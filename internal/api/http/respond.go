package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/quizgen/internal/auth"
	"github.com/mind-engage/quizgen/internal/platform/apierr"
	"github.com/mind-engage/quizgen/internal/platform/logger"
	"github.com/mind-engage/quizgen/internal/quiz"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 32 << 10

var validate = validator.New()

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into dst and runs struct validation. An
// empty body is allowed when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case errors.Is(err, io.EOF) && allowEmpty:
	case err != nil:
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apierr.New(http.StatusRequestEntityTooLarge, "Request body too large", err)
		}
		return apierr.New(http.StatusBadRequest, "Invalid JSON body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apierr.New(http.StatusBadRequest, validationMessage(err), err)
	}
	return nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request"
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return "Missing or invalid fields: " + strings.Join(fields, ", ")
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and answered with the route's generic 500 message.
func writeError(w http.ResponseWriter, log *logger.Logger, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback
	if ae, ok := apierr.As(err); ok {
		status, msg = ae.Status, ae.Message
	} else {
		switch {
		case errors.Is(err, quiz.ErrQuizNotFound):
			status, msg = http.StatusNotFound, "Quiz not found"
		case errors.Is(err, quiz.ErrUserNotFound):
			status, msg = http.StatusNotFound, "User not found"
		case errors.Is(err, quiz.ErrQuestionNotFound):
			status, msg = http.StatusNotFound, "Question not found"
		case errors.Is(err, quiz.ErrUserExists):
			status, msg = http.StatusConflict, "Username already taken"
		case errors.Is(err, auth.ErrInvalidCredentials):
			status, msg = http.StatusUnauthorized, "Invalid username or password"
		}
	}
	if status >= http.StatusInternalServerError {
		log.Error(fallback, "error", err)
	} else {
		log.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, message{Message: msg})
}

// flexString accepts a JSON string or number, e.g. grade 5 or "5".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}
