package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SnapshotStore persists snapshots of active sessions (in-memory, Redis, SQL).
type SnapshotStore interface {
	Save(ctx context.Context, key domain.SnapshotKey, snap domain.Snapshot) error
	Load(ctx context.Context, key domain.SnapshotKey) (domain.Snapshot, bool, error)
	Clear(ctx context.Context, key domain.SnapshotKey) error
}

// SnapshotPurger is implemented by stores that do not expire entries on their own.
type SnapshotPurger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// SessionRegistry tracks live and recently finished sessions by key.
type SessionRegistry interface {
	Put(key domain.SnapshotKey, session *Session)
	Get(key domain.SnapshotKey) (*Session, bool)
	// Delete removes the entry only if it still holds session.
	Delete(key domain.SnapshotKey, session *Session)
	Sessions() []*Session
}

// SessionService contains the quiz-taking use cases.
type SessionService struct {
	quizzes   QuizRepository
	sessions  SessionRegistry
	snapshots SnapshotStore

	logger    *log.Logger
	now       func() time.Time
	newID     func() string
	newTicker TickerFactory
	interval  time.Duration

	startMu sync.Mutex
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *SessionService) { s.logger = logger }
}

// WithClock overrides time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// WithTicker overrides the ticker used for session countdowns.
func WithTicker(factory TickerFactory) Option {
	return func(s *SessionService) { s.newTicker = factory }
}

// WithTickInterval sets how often the countdown ticks; one second by default.
// Each tick still counts as one second of remaining time, so other values
// scale the quiz clock.
func WithTickInterval(d time.Duration) Option {
	return func(s *SessionService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithoutTimer disables the countdown; callers drive Tick themselves.
func WithoutTimer() Option {
	return func(s *SessionService) { s.newTicker = nil }
}

func NewSessionService(quizzes QuizRepository, sessions SessionRegistry, snapshots SnapshotStore, opts ...Option) *SessionService {
	s := &SessionService{
		quizzes:   quizzes,
		sessions:  sessions,
		snapshots: snapshots,
		logger:    log.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
		newTicker: NewTicker,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a fresh attempt. Any existing session or snapshot for the same
// quiz and identity is discarded, never resumed.
func (s *SessionService) Start(ctx context.Context, quizID, identity string) (domain.SessionState, error) {
	session, err := s.Begin(ctx, quizID, identity)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.State(), nil
}

// Begin is Start for callers that hold on to the attempt, such as a live
// connection. Operations on the returned session keep targeting this attempt
// even after a later Begin for the same key replaces it.
func (s *SessionService) Begin(ctx context.Context, quizID, identity string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return nil, domain.ErrQuizNotFound
		}
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizNotFound
	}
	if err := quiz.Check(); err != nil {
		return nil, err
	}

	key := domain.SnapshotKey{QuizID: quizID, Identity: identity}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if previous, ok := s.sessions.Get(key); ok {
		previous.Abandon(ctx)
		s.sessions.Delete(key, previous)
	}
	if err := s.snapshots.Clear(ctx, key); err != nil {
		s.logger.Printf("snapshot clear failed for %s: %v", key, err)
	}

	session := newSession(sessionConfig{
		id:     s.newID(),
		key:    key,
		quiz:   quiz,
		store:  s.snapshots,
		logger: s.logger,
		now:    s.now,
	})
	s.sessions.Put(key, session)
	session.begin(ctx, s.newTicker, s.interval)
	return session, nil
}

// Session returns the session registered for quiz and identity.
func (s *SessionService) Session(quizID, identity string) (*Session, error) {
	session, ok := s.sessions.Get(domain.SnapshotKey{QuizID: quizID, Identity: identity})
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// State returns the current view of a session.
func (s *SessionService) State(_ context.Context, quizID, identity string) (domain.SessionState, error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.State(), nil
}

// Answer records an answer; last write wins.
func (s *SessionService) Answer(ctx context.Context, quizID, identity, questionID, value string) (domain.SessionState, error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.Answer(ctx, questionID, value), nil
}

// GoTo moves to a question index, clamped to the quiz.
func (s *SessionService) GoTo(ctx context.Context, quizID, identity string, index int) (domain.SessionState, error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.GoTo(ctx, index), nil
}

// Next moves to the following question.
func (s *SessionService) Next(ctx context.Context, quizID, identity string) (domain.SessionState, error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.Next(ctx), nil
}

// Previous moves to the preceding question.
func (s *SessionService) Previous(ctx context.Context, quizID, identity string) (domain.SessionState, error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.Previous(ctx), nil
}

// Submit grades the session. Repeated calls return the same result.
func (s *SessionService) Submit(ctx context.Context, quizID, identity string) (domain.Result, error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return domain.Result{}, err
	}
	return session.Submit(ctx)
}

// Abandon ends a session without grading and releases it.
func (s *SessionService) Abandon(ctx context.Context, quizID, identity string) error {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return err
	}
	session.Abandon(ctx)
	s.sessions.Delete(session.Key(), session)
	return nil
}

// Leave releases the session of a departing participant, abandoning it if it
// is still active. Submitted sessions stay until swept so a repeated submit
// still sees the cached result.
func (s *SessionService) Leave(ctx context.Context, quizID, identity string) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return
	}
	s.Release(ctx, session)
}

// Release abandons session if it is still active and unregisters it. A newer
// attempt registered under the same key is left untouched.
func (s *SessionService) Release(ctx context.Context, session *Session) {
	session.Abandon(ctx)
	if session.Status() == domain.StatusAbandoned {
		s.sessions.Delete(session.Key(), session)
	}
}

// Subscribe returns a channel of tick and terminal events for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(_ context.Context, quizID, identity string) (<-chan domain.SessionEvent, func(), error) {
	session, err := s.Session(quizID, identity)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Snapshot reads the stored snapshot for inspection. Start never consults it.
func (s *SessionService) Snapshot(ctx context.Context, quizID, identity string) (domain.Snapshot, bool, error) {
	return s.snapshots.Load(ctx, domain.SnapshotKey{QuizID: quizID, Identity: identity})
}

// Sweep releases sessions that terminated before cutoff and purges snapshots
// not written since cutoff, when the store supports it.
func (s *SessionService) Sweep(ctx context.Context, cutoff time.Time) (released, purged int) {
	for _, session := range s.sessions.Sessions() {
		if session.Status().Terminal() && session.FinishedAt().Before(cutoff) {
			s.sessions.Delete(session.Key(), session)
			released++
		}
	}
	if purger, ok := s.snapshots.(SnapshotPurger); ok {
		n, err := purger.Purge(ctx, cutoff)
		if err != nil {
			s.logger.Printf("snapshot purge failed: %v", err)
		}
		purged = n
	}
	return released, purged
}
