package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
)

const (
	quizzesCollection = "quizzes"
	usersCollection   = "users"
)

// MongoStore keeps quizzes and users as documents in MongoDB. Every call
// works on a copy of the root session; mgo has no context support, so ctx
// is only checked before the round trip.
type MongoStore struct {
	session *mgo.Session
	dbName  string
}

// DialMongo connects to url and ensures the unique username index.
func DialMongo(url, dbName string, timeout time.Duration) (*MongoStore, error) {
	sess, err := mgo.DialWithTimeout(url, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial mongo: %w", err)
	}
	sess.SetMode(mgo.Monotonic, true)
	s := &MongoStore{session: sess, dbName: dbName}

	c := sess.DB(dbName).C(usersCollection)
	if err := c.EnsureIndex(mgo.Index{Key: []string{"username"}, Unique: true}); err != nil {
		sess.Close()
		return nil, fmt.Errorf("ensure username index: %w", err)
	}
	return s, nil
}

func (s *MongoStore) Close() { s.session.Close() }

func (s *MongoStore) Ping() error { return s.session.Ping() }

func (s *MongoStore) with(ctx context.Context, coll string, fn func(*mgo.Collection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sess := s.session.Copy()
	defer sess.Close()
	return fn(sess.DB(s.dbName).C(coll))
}

func (s *MongoStore) CreateQuiz(ctx context.Context, q Quiz) error {
	if q.Attempts == nil {
		q.Attempts = []Attempt{}
	}
	return s.with(ctx, quizzesCollection, func(c *mgo.Collection) error {
		return c.Insert(q)
	})
}

func (s *MongoStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	var q Quiz
	err := s.with(ctx, quizzesCollection, func(c *mgo.Collection) error {
		return c.FindId(id).One(&q)
	})
	if errors.Is(err, mgo.ErrNotFound) {
		return Quiz{}, ErrQuizNotFound
	}
	if err != nil {
		return Quiz{}, err
	}
	normalizeQuiz(&q)
	return q, nil
}

func (s *MongoStore) GetQuizzes(ctx context.Context, ids []string) ([]Quiz, error) {
	if len(ids) == 0 {
		return []Quiz{}, nil
	}
	var found []Quiz
	err := s.with(ctx, quizzesCollection, func(c *mgo.Collection) error {
		return c.Find(bson.M{"_id": bson.M{"$in": ids}}).All(&found)
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Quiz, len(found))
	for _, q := range found {
		normalizeQuiz(&q)
		byID[q.ID] = q
	}
	out := make([]Quiz, 0, len(found))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *MongoStore) AppendAttempt(ctx context.Context, quizID string, a Attempt) error {
	err := s.with(ctx, quizzesCollection, func(c *mgo.Collection) error {
		return c.UpdateId(quizID, bson.M{"$push": bson.M{"attempts": a}})
	})
	if errors.Is(err, mgo.ErrNotFound) {
		return ErrQuizNotFound
	}
	return err
}

func (s *MongoStore) CreateUser(ctx context.Context, u User) error {
	if u.QuizHistory == nil {
		u.QuizHistory = []string{}
	}
	err := s.with(ctx, usersCollection, func(c *mgo.Collection) error {
		return c.Insert(u)
	})
	if mgo.IsDup(err) {
		return ErrUserExists
	}
	return err
}

func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.with(ctx, usersCollection, func(c *mgo.Collection) error {
		return c.Find(bson.M{"username": username}).One(&u)
	})
	if errors.Is(err, mgo.ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.QuizHistory == nil {
		u.QuizHistory = []string{}
	}
	return u, nil
}

// AddToHistory pushes quizID only when the history does not already hold
// it, so the inclusion check and the write are one atomic update.
func (s *MongoStore) AddToHistory(ctx context.Context, username, quizID string) (bool, error) {
	var changed bool
	err := s.with(ctx, usersCollection, func(c *mgo.Collection) error {
		err := c.Update(
			bson.M{"username": username, "quizHistory": bson.M{"$ne": quizID}},
			bson.M{"$push": bson.M{"quizHistory": quizID}},
		)
		if err == nil {
			changed = true
			return nil
		}
		if !errors.Is(err, mgo.ErrNotFound) {
			return err
		}
		n, err := c.Find(bson.M{"username": username}).Count()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	return changed, err
}

func normalizeQuiz(q *Quiz) {
	if q.Attempts == nil {
		q.Attempts = []Attempt{}
	}
	if q.Questions == nil {
		q.Questions = []Question{}
	}
}
