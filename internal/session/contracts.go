package session

import (
	"context"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Store is the persistence the orchestrator needs. *storage.DB satisfies it.
type Store interface {
	GetDeck(ctx context.Context, id string) (domain.Deck, error)
	ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error)
	GetCard(ctx context.Context, id string) (domain.Card, error)
	UpdateCardSchedule(ctx context.Context, c domain.Card, readAt time.Time) error
	InsertReviewLog(ctx context.Context, l domain.ReviewLog) error
	UpdateStats(ctx context.Context, fn func(domain.Stats) domain.Stats) (domain.Stats, error)
	InsertSession(ctx context.Context, s domain.SessionRecord) error
}
