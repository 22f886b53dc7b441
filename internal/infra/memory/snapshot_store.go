package memory

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// SnapshotStore keeps snapshots in a map, standing in for browser-style session storage.
type SnapshotStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]snapshotEntry
}

type snapshotEntry struct {
	snap    domain.Snapshot
	savedAt time.Time
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		clock:   time.Now,
		entries: make(map[string]snapshotEntry),
	}
}

func (s *SnapshotStore) Save(_ context.Context, key domain.SnapshotKey, snap domain.Snapshot) error {
	snap.Answers = snap.Answers.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = snapshotEntry{snap: snap, savedAt: s.clock()}
	return nil
}

func (s *SnapshotStore) Load(_ context.Context, key domain.SnapshotKey) (domain.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key.String()]
	if !ok {
		return domain.Snapshot{}, false, nil
	}
	snap := entry.snap
	snap.Answers = snap.Answers.Clone()
	return snap, true, nil
}

func (s *SnapshotStore) Clear(_ context.Context, key domain.SnapshotKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

// Purge drops snapshots saved before the cutoff.
func (s *SnapshotStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key, entry := range s.entries {
		if entry.savedAt.Before(before) {
			delete(s.entries, key)
			purged++
		}
	}
	return purged, nil
}

// Len reports how many snapshots are stored.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
