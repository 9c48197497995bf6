package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore keeps quiz and user documents in sqlite or postgres. Embedded
// arrays (questions, attempts, history) are JSON text columns.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) error {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	attempts := q.Attempts
	if attempts == nil {
		attempts = []Attempt{}
	}
	aj, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,grade,subject,questions_json,attempts_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		q.ID, q.Grade, q.Subject, string(qj), string(aj), q.Date.UnixMilli())
	return err
}

const quizColumns = `id,grade,subject,questions_json,attempts_json,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var (
		q           Quiz
		qjson       string
		ajson       string
		createdAtMs int64
	)
	if err := row.Scan(&q.ID, &q.Grade, &q.Subject, &qjson, &ajson, &createdAtMs); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("decode questions of quiz %s: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(ajson), &q.Attempts); err != nil {
		return Quiz{}, fmt.Errorf("decode attempts of quiz %s: %w", q.ID, err)
	}
	if q.Attempts == nil {
		q.Attempts = []Attempt{}
	}
	q.Date = time.UnixMilli(createdAtMs).UTC()
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id)
	q, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) GetQuizzes(ctx context.Context, ids []string) ([]Quiz, error) {
	if len(ids) == 0 {
		return []Quiz{}, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Quiz, len(ids))
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Quiz, 0, len(byID))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *SQLStore) AppendAttempt(ctx context.Context, quizID string, a Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ajson string
	if err := tx.QueryRowContext(ctx, `SELECT attempts_json FROM quizzes WHERE id=$1`+s.forUpdate(), quizID).Scan(&ajson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuizNotFound
		}
		return err
	}
	var attempts []Attempt
	if err := json.Unmarshal([]byte(ajson), &attempts); err != nil {
		return fmt.Errorf("decode attempts of quiz %s: %w", quizID, err)
	}
	attempts = append(attempts, a)
	buf, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quizzes SET attempts_json=$1 WHERE id=$2`, string(buf), quizID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) error {
	history := u.QuizHistory
	if history == nil {
		history = []string{}
	}
	hj, _ := json.Marshal(history)
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id,username,password_hash,quiz_history_json,created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Username, u.PasswordHash, string(hj), u.CreatedAt.UnixMilli())
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	return err
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,password_hash,quiz_history_json,created_at FROM users WHERE username=$1`, username)
	var (
		u           User
		hjson       string
		createdAtMs int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &hjson, &createdAtMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if err := json.Unmarshal([]byte(hjson), &u.QuizHistory); err != nil {
		return User{}, fmt.Errorf("decode history of user %s: %w", username, err)
	}
	if u.QuizHistory == nil {
		u.QuizHistory = []string{}
	}
	u.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	return u, nil
}

func (s *SQLStore) AddToHistory(ctx context.Context, username, quizID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var hjson string
	if err := tx.QueryRowContext(ctx, `SELECT quiz_history_json FROM users WHERE username=$1`+s.forUpdate(), username).Scan(&hjson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	u := User{Username: username}
	if err := json.Unmarshal([]byte(hjson), &u.QuizHistory); err != nil {
		return false, fmt.Errorf("decode history of user %s: %w", username, err)
	}
	if u.HasQuiz(quizID) {
		return false, nil
	}
	buf, _ := json.Marshal(append(u.QuizHistory, quizID))
	if _, err := tx.ExecContext(ctx, `UPDATE users SET quiz_history_json=$1 WHERE username=$2`, string(buf), username); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) forUpdate() string {
	if s.driver == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") // sqlite
}
