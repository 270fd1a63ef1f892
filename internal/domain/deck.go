package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deck groups cards under a name.
type Deck struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Tags        []string  `json:"tags" validate:"dive,required,max=50"`
	SourceID    *int64    `json:"source_id,omitempty"` // set for decks imported from a source
	Path        string    `json:"path,omitempty"`      // file the deck was imported from
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDeck creates an empty deck.
func NewDeck(name, description string, tags []string, now time.Time) Deck {
	if tags == nil {
		tags = []string{}
	}
	return Deck{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SourceType is where a source's markdown decks come from.
type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceGit   SourceType = "git"
)

// Source is a local directory or git repository of markdown decks.
type Source struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        SourceType `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}
