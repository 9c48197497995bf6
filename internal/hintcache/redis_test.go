package hintcache

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("q1", "a2"); got != "quizgen:hint:q1:a2" {
		t.Fatalf("key=%q", got)
	}
}

func TestNewRedisRequiresAddress(t *testing.T) {
	if _, err := NewRedis("", time.Minute, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	// port 1 is reserved and refuses connections
	if _, err := NewRedis("127.0.0.1:1", time.Minute, nil); err == nil {
		t.Fatal("expected ping failure")
	}
}
