package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// Session is one participant's live attempt at a quiz. All operations are
// serialized on mu, so the countdown and transport callbacks never interleave.
// Operations on a terminated session are no-ops.
type Session struct {
	id     string
	key    domain.SnapshotKey
	quiz   domain.Quiz
	store  SnapshotStore
	logger *log.Logger
	now    func() time.Time

	mu          sync.Mutex
	index       int
	remaining   int
	answers     domain.AnswerMap
	status      domain.Status
	result      *domain.Result
	finishedAt  time.Time
	timer       *countdown
	subscribers map[chan domain.SessionEvent]struct{}
}

type sessionConfig struct {
	id     string
	key    domain.SnapshotKey
	quiz   domain.Quiz
	store  SnapshotStore
	logger *log.Logger
	now    func() time.Time
}

func newSession(cfg sessionConfig) *Session {
	return &Session{
		id:          cfg.id,
		key:         cfg.key,
		quiz:        cfg.quiz,
		store:       cfg.store,
		logger:      cfg.logger,
		now:         cfg.now,
		remaining:   cfg.quiz.Duration * 60,
		answers:     make(domain.AnswerMap),
		status:      domain.StatusActive,
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
}

// begin performs the initial snapshot save and, when newTicker is set, starts
// the countdown.
func (s *Session) begin(ctx context.Context, newTicker TickerFactory, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(ctx)
	if newTicker != nil {
		s.timer = startCountdown(newTicker, interval, func() {
			s.Tick(context.Background())
		})
	}
}

// ID returns the attempt id.
func (s *Session) ID() string { return s.id }

// Key returns the snapshot key of the session.
func (s *Session) Key() domain.SnapshotKey { return s.key }

// Status returns the lifecycle state.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// FinishedAt returns when the session terminated, zero while active.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// State returns the current view of the session.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Answer records value for questionID, replacing any previous value. Unknown
// question ids are ignored.
func (s *Session) Answer(ctx context.Context, questionID, value string) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusActive || !s.quiz.HasQuestion(questionID) {
		return s.stateLocked()
	}
	s.answers[questionID] = value
	s.saveLocked(ctx)
	return s.stateLocked()
}

// GoTo moves to index, clamped to the question range.
func (s *Session) GoTo(ctx context.Context, index int) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(ctx, index)
	return s.stateLocked()
}

// Next moves one question forward, staying on the last one.
func (s *Session) Next(ctx context.Context) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(ctx, s.index+1)
	return s.stateLocked()
}

// Previous moves one question back, staying on the first one.
func (s *Session) Previous(ctx context.Context) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(ctx, s.index-1)
	return s.stateLocked()
}

func (s *Session) goToLocked(ctx context.Context, index int) {
	if s.status != domain.StatusActive {
		return
	}
	if index < 0 {
		index = 0
	}
	if last := len(s.quiz.Questions) - 1; index > last {
		index = last
	}
	if index == s.index {
		return
	}
	s.index = index
	s.saveLocked(ctx)
}

// Tick advances the countdown by one second. Reaching zero submits the
// session; ticks after that are ignored.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusActive {
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.submitLocked(ctx, true)
		return
	}
	s.saveLocked(ctx)
	s.broadcastLocked(domain.SessionEvent{Type: domain.EventTick, State: s.stateLocked()})
}

// Submit grades the session once and returns the result. Later calls return
// the cached result.
func (s *Session) Submit(ctx context.Context) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return s.result.Clone(), nil
	}
	if s.status != domain.StatusActive {
		return domain.Result{}, domain.ErrSessionClosed
	}
	return s.submitLocked(ctx, false).Clone(), nil
}

// Result returns the cached result if the session was submitted.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return s.result.Clone(), true
}

// Abandon ends an active session without grading it.
func (s *Session) Abandon(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusActive {
		return
	}
	s.status = domain.StatusAbandoned
	s.finishLocked(ctx)
	s.broadcastLocked(domain.SessionEvent{Type: domain.EventAbandoned, State: s.stateLocked()})
	s.closeSubscribersLocked()
}

func (s *Session) submitLocked(ctx context.Context, auto bool) *domain.Result {
	s.status = domain.StatusSubmitted
	s.finishLocked(ctx)

	breakdown := Score(s.quiz, s.answers)
	s.result = &domain.Result{
		SessionID:     s.id,
		Score:         breakdown.Score,
		TotalPossible: breakdown.TotalPossible,
		Percentage:    breakdown.Percentage(),
		Correct:       breakdown.Correct,
		Wrong:         breakdown.Wrong,
		Answers:       s.answers.Clone(),
		Quiz:          s.quiz,
		Review:        breakdown.Review,
		AutoSubmitted: auto,
		SubmittedAt:   s.finishedAt,
	}

	result := s.result.Clone()
	s.broadcastLocked(domain.SessionEvent{Type: domain.EventResult, State: s.stateLocked(), Result: &result})
	s.closeSubscribersLocked()
	return s.result
}

// finishLocked stops the countdown and removes the snapshot.
func (s *Session) finishLocked(ctx context.Context) {
	s.timer.stop()
	s.timer = nil
	s.finishedAt = s.now()
	if err := s.store.Clear(ctx, s.key); err != nil {
		s.logger.Printf("snapshot clear failed for %s: %v", s.key, err)
	}
}

func (s *Session) saveLocked(ctx context.Context) {
	snap := domain.Snapshot{
		CurrentQuestionIndex: s.index,
		Answers:              s.answers.Clone(),
		TimeRemaining:        s.remaining,
		QuizID:               s.key.QuizID,
		Identity:             s.key.Identity,
	}
	if err := s.store.Save(ctx, s.key, snap); err != nil {
		s.logger.Printf("snapshot save failed for %s: %v", s.key, err)
	}
}

func (s *Session) stateLocked() domain.SessionState {
	count := len(s.quiz.Questions)
	q := s.quiz.Questions[s.index]
	answered := make([]bool, count)
	for i := range s.quiz.Questions {
		answered[i] = s.answers.Answered(s.quiz.Questions[i].ID)
	}
	return domain.SessionState{
		SessionID:     s.id,
		QuizID:        s.key.QuizID,
		Identity:      s.key.Identity,
		Title:         s.quiz.Title,
		Status:        s.status,
		Index:         s.index,
		QuestionCount: count,
		Question: domain.QuestionView{
			Number:  s.index + 1,
			ID:      q.ID,
			Kind:    q.Kind,
			Prompt:  q.Prompt,
			Options: q.Options,
			Points:  q.Points,
			Answer:  s.answers[q.ID],
		},
		IsLast:    s.index == count-1,
		Progress:  (s.index + 1) * 100 / count,
		Remaining: s.remaining,
		Clock:     domain.FormatClock(s.remaining),
		Answered:  answered,
	}
}

// Subscribe returns a channel of tick and terminal events. The channel is
// closed once the session terminates or cancel is called.
func (s *Session) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	if s.status.Terminal() {
		ch <- s.terminalEventLocked()
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- domain.SessionEvent{Type: domain.EventState, State: s.stateLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) terminalEventLocked() domain.SessionEvent {
	if s.result != nil {
		result := s.result.Clone()
		return domain.SessionEvent{Type: domain.EventResult, State: s.stateLocked(), Result: &result}
	}
	return domain.SessionEvent{Type: domain.EventAbandoned, State: s.stateLocked()}
}

func (s *Session) broadcastLocked(event domain.SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// full: drop the oldest pending event
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
