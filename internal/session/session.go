// Package session runs study sessions: it picks the due cards of a deck, feeds
// graded answers to the scheduler one at a time and keeps the study record.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/progress"
	"github.com/conorfennell/knoldeck/internal/sm2"
)

var (
	ErrNotInSession    = errors.New("card is not part of this session")
	ErrAlreadyAnswered = errors.New("card was already answered in this session")
	ErrFinished        = errors.New("session is finished")
	ErrUnknownSession  = errors.New("unknown session")
)

// Options controls how a session's queue is built.
type Options struct {
	// Limit caps the queue. Zero uses the service's daily goal, negative means no cap.
	Limit int
	// IncludeNotDue studies the whole deck when none of its cards are due.
	IncludeNotDue bool
}

// Result is the outcome of answering one card.
type Result struct {
	Card     domain.Card  `json:"card"`
	XPEarned int          `json:"xp_earned"`
	Stats    domain.Stats `json:"stats"`
}

// Service orchestrates study sessions.
type Service struct {
	store     Store
	params    *sm2.Params
	dailyGoal int
	now       func() time.Time
	shuffle   func([]domain.Card)

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithShuffle replaces the random shuffle of the study queue.
func WithShuffle(shuffle func([]domain.Card)) Option {
	return func(s *Service) { s.shuffle = shuffle }
}

// NewService creates a session service. dailyGoal caps the queue by default; 0 means no cap.
func NewService(store Store, params *sm2.Params, dailyGoal int, opts ...Option) *Service {
	s := &Service{
		store:     store,
		params:    params,
		dailyGoal: dailyGoal,
		now:       time.Now,
		shuffle: func(cards []domain.Card) {
			rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		},
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is one pass over a deck's study queue. It is safe for concurrent use.
type Session struct {
	ID        string
	DeckID    string
	StartedAt time.Time
	Queue     []domain.Card

	mu       sync.Mutex
	answered map[string]bool
	reviews  []domain.SessionReview
	finished bool
}

// Remaining returns how many queued cards have not been answered yet.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Queue) - len(s.answered)
}

// Next returns the first queued card that has not been answered.
func (s *Session) Next() (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Queue {
		if !s.answered[c.ID] {
			return c, true
		}
	}
	return domain.Card{}, false
}

// Reviews returns the answers given so far, in order.
func (s *Session) Reviews() []domain.SessionReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SessionReview(nil), s.reviews...)
}

func (s *Session) contains(cardID string) bool {
	for _, c := range s.Queue {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

// Start builds a shuffled queue of the deck's due cards and registers the session.
func (svc *Service) Start(ctx context.Context, deckID string, opts Options) (*Session, error) {
	if _, err := svc.store.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	cards, err := svc.store.ListCardsByDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	queue := sm2.SelectDue(cards, now)
	if len(queue) == 0 && opts.IncludeNotDue {
		queue = append(queue, cards...)
	}
	svc.shuffle(queue)

	limit := opts.Limit
	if limit == 0 {
		limit = svc.dailyGoal
	}
	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}

	sess := &Session{
		ID:        uuid.NewString(),
		DeckID:    deckID,
		StartedAt: now,
		Queue:     queue,
		answered:  make(map[string]bool),
	}

	svc.mu.Lock()
	svc.sessions[sess.ID] = sess
	svc.mu.Unlock()

	slog.Info("study session started", "session_id", sess.ID, "deck_id", deckID, "due", len(queue), "cards", len(cards))
	return sess, nil
}

// Lookup returns a running session by ID.
func (svc *Service) Lookup(id string) (*Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sess, ok := svc.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

// Answer grades one card of the session and persists its new schedule.
func (svc *Service) Answer(ctx context.Context, sess *Session, cardID string, outcome domain.Outcome) (Result, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch {
	case sess.finished:
		return Result{}, ErrFinished
	case !sess.contains(cardID):
		return Result{}, fmt.Errorf("%w: %s", ErrNotInSession, cardID)
	case sess.answered[cardID]:
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyAnswered, cardID)
	}

	res, err := svc.review(ctx, cardID, sess.ID, outcome)
	if err != nil {
		return Result{}, err
	}
	sess.answered[cardID] = true
	sess.reviews = append(sess.reviews, domain.SessionReview{CardID: cardID, Outcome: outcome})
	return res, nil
}

// Review grades a single card outside of any session.
func (svc *Service) Review(ctx context.Context, cardID string, outcome domain.Outcome) (Result, error) {
	return svc.review(ctx, cardID, "", outcome)
}

func (svc *Service) review(ctx context.Context, cardID, sessionID string, outcome domain.Outcome) (Result, error) {
	if !outcome.IsValid() {
		return Result{}, fmt.Errorf("%w: %d", domain.ErrInvalidOutcome, int(outcome))
	}

	card, err := svc.store.GetCard(ctx, cardID)
	if err != nil {
		return Result{}, err
	}

	now := svc.now()
	next, err := svc.params.NextState(card, outcome, now)
	if err != nil {
		return Result{}, err
	}
	// Stored timestamps have millisecond precision.
	next.UpdatedAt = now.Truncate(time.Millisecond)
	if !next.UpdatedAt.After(card.UpdatedAt) {
		// The stored version must change for compare-and-set to detect a second writer.
		next.UpdatedAt = card.UpdatedAt.Add(time.Millisecond)
	}

	if err := svc.store.UpdateCardSchedule(ctx, next, card.UpdatedAt); err != nil {
		return Result{}, err
	}

	if err := svc.store.InsertReviewLog(ctx, domain.ReviewLog{
		CardID:     cardID,
		SessionID:  sessionID,
		Outcome:    outcome,
		Interval:   next.Interval,
		ReviewedAt: now,
	}); err != nil {
		// The schedule is already saved; a missing history row is not worth failing the review.
		slog.Warn("failed to record review log", "card_id", cardID, "error", err)
	}

	stats, err := svc.store.UpdateStats(ctx, func(s domain.Stats) domain.Stats {
		return progress.RecordReview(s, outcome)
	})
	if err != nil {
		return Result{}, err
	}

	slog.Debug("card reviewed",
		"card_id", cardID,
		"outcome", outcome.String(),
		"interval", next.Interval,
		"easiness_factor", next.EasinessFactor,
	)
	return Result{Card: next, XPEarned: progress.XPForOutcome(outcome), Stats: stats}, nil
}

// Finish closes the session. Sessions with at least one answer are recorded and
// count towards study time and the daily streak.
func (svc *Service) Finish(ctx context.Context, sess *Session) (domain.SessionRecord, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.finished {
		return domain.SessionRecord{}, ErrFinished
	}

	now := svc.now()
	rec := domain.SessionRecord{
		ID:        sess.ID,
		DeckID:    sess.DeckID,
		StartedAt: sess.StartedAt,
		Duration:  max(now.Sub(sess.StartedAt), 0),
		Reviews:   append([]domain.SessionReview{}, sess.reviews...),
	}

	if len(rec.Reviews) > 0 {
		if err := svc.store.InsertSession(ctx, rec); err != nil {
			return domain.SessionRecord{}, err
		}
		if _, err := svc.store.UpdateStats(ctx, func(s domain.Stats) domain.Stats {
			s = progress.AddStudyTime(s, rec.Duration)
			return progress.UpdateStreak(s, now)
		}); err != nil {
			return domain.SessionRecord{}, err
		}
	}

	sess.finished = true
	svc.mu.Lock()
	delete(svc.sessions, sess.ID)
	svc.mu.Unlock()

	slog.Info("study session finished", "session_id", sess.ID, "reviewed", len(rec.Reviews), "duration", rec.Duration)
	return rec, nil
}
