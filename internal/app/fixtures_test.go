package app_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func mixedQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-a",
		Title:    "Geography",
		Duration: 1,
		Questions: []domain.Question{
			{ID: "q1", Kind: domain.KindMultipleChoice, Prompt: "Capital of France?", Options: []string{"Paris", "Rome", "Oslo"}, CorrectAnswer: "Paris", Points: 1},
			{ID: "q2", Kind: domain.KindMultipleChoice, Prompt: "Third planet?", Options: []string{"Mars", "Earth", "Venus"}, CorrectAnswer: "Earth", Points: 1},
			{ID: "q3", Kind: domain.KindText, Prompt: "Describe a river.", Points: 2},
		},
	}
}

func trueFalseQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-tf",
		Title:    "Facts",
		Duration: 2,
		Questions: []domain.Question{
			{ID: "tf", Kind: domain.KindTrueFalse, Prompt: "Water is wet.", Options: domain.TrueFalseOptions, CorrectAnswer: "True", Points: 3},
		},
	}
}

func textOnlyQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-text",
		Title:     "Essay",
		Duration:  10,
		Questions: []domain.Question{{ID: "t1", Kind: domain.KindText, Prompt: "Why?", Points: 5}},
	}
}

func testCatalog() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-a":     mixedQuiz(),
		"quiz-tf":    trueFalseQuiz(),
		"quiz-text":  textOnlyQuiz(),
		"quiz-empty": {ID: "quiz-empty", Title: "Empty", Duration: 5},
		"quiz-bad": {ID: "quiz-bad", Title: "Bad", Duration: 5, Questions: []domain.Question{
			{ID: "x", Kind: domain.KindMultipleChoice, Prompt: "?", Points: 0},
		}},
		"quiz-badkey": {ID: "quiz-badkey", Title: "Bad key", Duration: 5, Questions: []domain.Question{
			{ID: "k", Kind: domain.KindMultipleChoice, Prompt: "?", Options: []string{"A", "B"}, CorrectAnswer: "C", Points: 1},
		}},
	}
}

type testEnv struct {
	service   *app.SessionService
	registry  *memory.SessionRegistry
	snapshots *memory.SnapshotStore
	logs      *bytes.Buffer
}

func newTestEnv(opts ...app.Option) testEnv {
	env := testEnv{
		registry:  memory.NewSessionRegistry(),
		snapshots: memory.NewSnapshotStore(),
		logs:      &bytes.Buffer{},
	}
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(testCatalog()), 5*time.Minute)
	opts = append([]app.Option{app.WithoutTimer(), app.WithLogger(log.New(env.logs, "", 0))}, opts...)
	env.service = app.NewSessionService(quizzes, env.registry, env.snapshots, opts...)
	return env
}

var errStorageFull = errors.New("storage quota exceeded")

// failingStore rejects every write, like a full browser storage.
type failingStore struct {
	mu     sync.Mutex
	saves  int
	clears int
}

func (f *failingStore) Save(context.Context, domain.SnapshotKey, domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return errStorageFull
}

func (f *failingStore) Load(context.Context, domain.SnapshotKey) (domain.Snapshot, bool, error) {
	return domain.Snapshot{}, false, errStorageFull
}

func (f *failingStore) Clear(context.Context, domain.SnapshotKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return errStorageFull
}

// countingStore records writes on top of the memory store.
type countingStore struct {
	*memory.SnapshotStore
	mu     sync.Mutex
	saves  int
	clears int
}

func (c *countingStore) Save(ctx context.Context, key domain.SnapshotKey, snap domain.Snapshot) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.SnapshotStore.Save(ctx, key, snap)
}

func (c *countingStore) Clear(ctx context.Context, key domain.SnapshotKey) error {
	c.mu.Lock()
	c.clears++
	c.mu.Unlock()
	return c.SnapshotStore.Clear(ctx, key)
}

func (c *countingStore) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves, c.clears
}
