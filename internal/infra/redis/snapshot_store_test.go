package redis

import (
	"context"
	"reflect"
	"testing"
	"time"

	"quiz-session-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSnapshotStore(newClient(mr), time.Hour)
	key := domain.SnapshotKey{QuizID: "42", Identity: "alice"}
	snap := domain.Snapshot{
		CurrentQuestionIndex: 2,
		Answers:              domain.AnswerMap{"q1": "Paris", "q3": ""},
		TimeRemaining:        93,
		QuizID:               "42",
		Identity:             "alice",
	}

	if err := store.Save(ctx, key, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz_42_alice") {
		t.Fatalf("expected redis key quiz_42_alice")
	}
	if ttl := mr.TTL("quiz_42_alice"); ttl != time.Hour {
		t.Fatalf("expected one hour ttl, got %v", ttl)
	}

	got, ok, err := store.Load(ctx, key)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", snap, got)
	}

	if err := store.Clear(ctx, key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz_42_alice") {
		t.Fatalf("expected redis key removed")
	}
	if _, ok, err := store.Load(ctx, key); ok || err != nil {
		t.Fatalf("expected absent snapshot, ok=%v err=%v", ok, err)
	}
}

func TestSnapshotStoreUsesWireFormat(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSnapshotStore(newClient(mr), time.Minute)
	key := domain.SnapshotKey{QuizID: "7", Identity: "bob"}
	_ = store.Save(context.Background(), key, domain.Snapshot{Answers: domain.AnswerMap{}, TimeRemaining: 5, QuizID: "7", Identity: "bob"})

	raw, err := mr.Get("quiz_7_bob")
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	want := `{"currentQuestionIndex":0,"answers":{},"timeRemaining":5,"quizId":"7","identity":"bob"}`
	if raw != want {
		t.Fatalf("unexpected wire format:\nwant %s\ngot  %s", want, raw)
	}
}

func TestSnapshotStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSnapshotStore(newClient(mr), time.Minute)
	key := domain.SnapshotKey{QuizID: "7", Identity: "bob"}
	_ = store.Save(context.Background(), key, domain.Snapshot{QuizID: "7", Identity: "bob"})

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Load(context.Background(), key); ok {
		t.Fatalf("expected snapshot to expire")
	}
}
