package syncx

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mind-engage/quizgen/internal/db"
)

func TestEventRepoRecordAndList(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "events.db")
	h, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	repo := NewEventRepo(h)

	if err := repo.Record(ctx, TypeQuizGenerated, "quiz-1", map[string]any{"questions": 3}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record(ctx, TypeQuizGenerated, "quiz-2", nil); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record(ctx, TypeAttemptRecorded, "quiz-1", map[string]any{"score": 50}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.List(ctx, "quiz-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("events=%+v", got)
	}
	if got[0].Type != TypeQuizGenerated || got[1].Type != TypeAttemptRecorded || got[0].Seq >= got[1].Seq {
		t.Fatalf("order=%+v", got)
	}
	var data map[string]float64
	if err := json.Unmarshal([]byte(got[1].DataJSON), &data); err != nil || data["score"] != 50 {
		t.Fatalf("data=%q err=%v", got[1].DataJSON, err)
	}
	if got[0].CreatedAt == 0 {
		t.Fatal("created_at not set")
	}

	none, err := repo.List(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Fatalf("none=%v err=%v", none, err)
	}
}
