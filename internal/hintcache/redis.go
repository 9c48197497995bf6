package hintcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mind-engage/quizgen/internal/platform/logger"
)

const keyPrefix = "quizgen:hint:"

// Redis caches generated hints per quiz question. Questions never change
// after generation, so a hint stays valid until the TTL drops it.
type Redis struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedis(addr string, ttl time.Duration, log *logger.Logger) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if log == nil {
		log = logger.Nop()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{log: log.With("service", "HintCache"), rdb: rdb, ttl: ttl}, nil
}

func Key(quizID, questionID string) string {
	return keyPrefix + quizID + ":" + questionID
}

// Get reports ok=false on a miss.
func (r *Redis) Get(ctx context.Context, quizID, questionID string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, Key(quizID, questionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, quizID, questionID, hint string) error {
	return r.rdb.Set(ctx, Key(quizID, questionID), hint, r.ttl).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }
