package quiz

import (
	"context"
	"sync"
)

// Store persists quizzes and users. Quiz and user writes are independent;
// implementations do not coordinate them.
type Store interface {
	CreateQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	// GetQuizzes fetches many quizzes in one round trip. Results follow the
	// order of ids; unknown ids are skipped.
	GetQuizzes(ctx context.Context, ids []string) ([]Quiz, error)
	AppendAttempt(ctx context.Context, quizID string, a Attempt) error

	CreateUser(ctx context.Context, u User) error
	GetUserByUsername(ctx context.Context, username string) (User, error)
	// AddToHistory appends quizID unless it is already present and reports
	// whether the history changed.
	AddToHistory(ctx context.Context, username, quizID string) (bool, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	quizzes map[string]Quiz
	users   map[string]User // by username
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes: map[string]Quiz{},
		users:   map[string]User{},
	}
}

func (m *memoryStore) CreateQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return cloneQuiz(q), nil
}

func (m *memoryStore) GetQuizzes(_ context.Context, ids []string) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Quiz, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.quizzes[id]; ok {
			out = append(out, cloneQuiz(q))
		}
	}
	return out, nil
}

func (m *memoryStore) AppendAttempt(_ context.Context, quizID string, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return ErrQuizNotFound
	}
	q.Attempts = append(q.Attempts, a)
	m.quizzes[quizID] = q
	return nil
}

func (m *memoryStore) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return ErrUserExists
	}
	if u.QuizHistory == nil {
		u.QuizHistory = []string{}
	}
	m.users[u.Username] = u
	return nil
}

func (m *memoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	u.QuizHistory = append([]string{}, u.QuizHistory...)
	return u, nil
}

func (m *memoryStore) AddToHistory(_ context.Context, username, quizID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return false, ErrUserNotFound
	}
	if u.HasQuiz(quizID) {
		return false, nil
	}
	u.QuizHistory = append(u.QuizHistory, quizID)
	m.users[username] = u
	return true, nil
}

func cloneQuiz(q Quiz) Quiz {
	q.Questions = append(make([]Question, 0, len(q.Questions)), q.Questions...)
	q.Attempts = append(make([]Attempt, 0, len(q.Attempts)), q.Attempts...)
	return q
}
