package domain

import (
	"time"

	"github.com/google/uuid"
)

// Default scheduling values for a card that has never been reviewed.
const (
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
)

// Card is a single front/back flashcard together with its spaced-repetition state.
type Card struct {
	ID     string `json:"id"`
	DeckID string `json:"deck_id" validate:"required"`
	Front  string `json:"front" validate:"required,max=4000"`
	Back   string `json:"back" validate:"max=4000"`
	Hash   string `json:"hash,omitempty"`

	EasinessFactor float64    `json:"easiness_factor"`
	Repetitions    int        `json:"repetitions"`
	Interval       int        `json:"interval"`      // days
	DueDate        *time.Time `json:"due_date"`      // nil: never scheduled, due now
	LastReviewed   *time.Time `json:"last_reviewed"` // nil: never reviewed

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCard creates a card in its initial state. The due date is the start of
// now's day so the card is eligible for review immediately.
func NewCard(deckID, front, back string, now time.Time) Card {
	y, m, d := now.Date()
	due := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return Card{
		ID:             uuid.NewString(),
		DeckID:         deckID,
		Front:          front,
		Back:           back,
		EasinessFactor: DefaultEasinessFactor,
		DueDate:        &due,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a copy of the card that shares no pointers with c.
func (c Card) Clone() Card {
	out := c
	if c.DueDate != nil {
		v := *c.DueDate
		out.DueDate = &v
	}
	if c.LastReviewed != nil {
		v := *c.LastReviewed
		out.LastReviewed = &v
	}
	return out
}

// ReviewLog records a single graded review of a card.
type ReviewLog struct {
	ID         int64     `json:"id"`
	CardID     string    `json:"card_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Interval   int       `json:"interval"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
