package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-session-service/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore keeps session snapshots in a local SQLite file, for
// single-node deployments and the terminal client.
type SnapshotStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "snapshots.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &SnapshotStore{db: db, clock: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SnapshotStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quiz_snapshots (
			key TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			identity TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_snapshots_updated_at ON quiz_snapshots(updated_at_unix);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) Save(ctx context.Context, key domain.SnapshotKey, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_snapshots (key, quiz_id, identity, data, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at_unix = excluded.updated_at_unix`,
		key.String(), key.QuizID, key.Identity, string(data), s.clock().UnixNano())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, key domain.SnapshotKey) (domain.Snapshot, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM quiz_snapshots WHERE key = ?`, key.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Answers == nil {
		snap.Answers = domain.AnswerMap{}
	}
	return snap, true, nil
}

func (s *SnapshotStore) Clear(ctx context.Context, key domain.SnapshotKey) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quiz_snapshots WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Purge deletes snapshots not written since before.
func (s *SnapshotStore) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quiz_snapshots WHERE updated_at_unix < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
