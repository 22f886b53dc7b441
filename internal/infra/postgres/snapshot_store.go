package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SnapshotStore keeps session snapshots in the quiz_snapshots table.
type SnapshotStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool, clock: time.Now}
}

func (s *SnapshotStore) Save(ctx context.Context, key domain.SnapshotKey, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_snapshots (key, quiz_id, identity, data, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		key.String(), key.QuizID, key.Identity, string(data), s.clock().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, key domain.SnapshotKey) (domain.Snapshot, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quiz_snapshots WHERE key=$1`, key.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Answers == nil {
		snap.Answers = domain.AnswerMap{}
	}
	return snap, true, nil
}

func (s *SnapshotStore) Clear(ctx context.Context, key domain.SnapshotKey) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_snapshots WHERE key=$1`, key.String()); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Purge deletes snapshots not written since before.
func (s *SnapshotStore) Purge(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quiz_snapshots WHERE updated_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
