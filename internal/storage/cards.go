package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type cardRow struct {
	ID             string        `db:"id"`
	DeckID         string        `db:"deck_id"`
	Front          string        `db:"front"`
	Back           string        `db:"back"`
	Hash           string        `db:"hash"`
	EasinessFactor float64       `db:"easiness_factor"`
	Repetitions    int           `db:"repetitions"`
	Interval       int           `db:"interval_days"`
	DueDate        sql.NullInt64 `db:"due_date"`
	LastReviewed   sql.NullInt64 `db:"last_reviewed"`
	CreatedAt      int64         `db:"created_at"`
	UpdatedAt      int64         `db:"updated_at"`
}

const cardColumns = `id, deck_id, front, back, hash, easiness_factor, repetitions,
	interval_days, due_date, last_reviewed, created_at, updated_at`

func newCardRow(c domain.Card) cardRow {
	return cardRow{
		ID:             c.ID,
		DeckID:         c.DeckID,
		Front:          c.Front,
		Back:           c.Back,
		Hash:           c.Hash,
		EasinessFactor: c.EasinessFactor,
		Repetitions:    c.Repetitions,
		Interval:       c.Interval,
		DueDate:        nullMillis(c.DueDate),
		LastReviewed:   nullMillis(c.LastReviewed),
		CreatedAt:      toMillis(c.CreatedAt),
		UpdatedAt:      toMillis(c.UpdatedAt),
	}
}

func (r cardRow) card() domain.Card {
	return domain.Card{
		ID:             r.ID,
		DeckID:         r.DeckID,
		Front:          r.Front,
		Back:           r.Back,
		Hash:           r.Hash,
		EasinessFactor: r.EasinessFactor,
		Repetitions:    r.Repetitions,
		Interval:       r.Interval,
		DueDate:        timePtr(r.DueDate),
		LastReviewed:   timePtr(r.LastReviewed),
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

func cardsFromRows(rows []cardRow) []domain.Card {
	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.card())
	}
	return cards
}

func insertCard(ctx context.Context, e sqlx.ExtContext, c domain.Card) error {
	_, err := sqlx.NamedExecContext(ctx, e, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (:id, :deck_id, :front, :back, :hash, :easiness_factor, :repetitions,
			:interval_days, :due_date, :last_reviewed, :created_at, :updated_at)
	`, newCardRow(c))
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
	}
	return nil
}

// InsertCard stores a new card.
func (db *DB) InsertCard(ctx context.Context, c domain.Card) error {
	return insertCard(ctx, db.conn, c)
}

// InsertCard stores a new card inside the transaction.
func (tx *Tx) InsertCard(ctx context.Context, c domain.Card) error {
	return insertCard(ctx, tx.tx, c)
}

// GetCard retrieves a card by ID.
func (db *DB) GetCard(ctx context.Context, id string) (domain.Card, error) {
	var row cardRow
	err := db.conn.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return row.card(), nil
}

// FindCardByHash returns the card in deckID with the given content hash.
func (db *DB) FindCardByHash(ctx context.Context, deckID, hash string) (domain.Card, error) {
	var row cardRow
	err := db.conn.GetContext(ctx, &row,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? AND hash = ? LIMIT 1`, deckID, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, fmt.Errorf("card with hash %s: %w", hash, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return row.card(), nil
}

// ListCardsByDeck returns a deck's cards in creation order.
func (db *DB) ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error) {
	var rows []cardRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY created_at, id`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for deck %s: %w", deckID, err)
	}
	return cardsFromRows(rows), nil
}

// ListCards returns every card.
func (db *DB) ListCards(ctx context.Context) ([]domain.Card, error) {
	var rows []cardRow
	if err := db.conn.SelectContext(ctx, &rows, `SELECT `+cardColumns+` FROM cards ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cardsFromRows(rows), nil
}

// UpdateCardContent replaces the card's front, back and hash.
func (db *DB) UpdateCardContent(ctx context.Context, c domain.Card) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards SET front = ?, back = ?, hash = ?, updated_at = ?
		WHERE id = ?
	`, c.Front, c.Back, c.Hash, toMillis(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", c.ID, err)
	}
	return expectOne(res, "card "+c.ID)
}

// UpdateCardSchedule writes the card's scheduling fields if the stored card
// still has the updated_at value the caller read. A stale write returns
// domain.ErrConflict and leaves the stored card untouched.
func (db *DB) UpdateCardSchedule(ctx context.Context, c domain.Card, readAt time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET easiness_factor = ?, repetitions = ?, interval_days = ?,
			due_date = ?, last_reviewed = ?, updated_at = ?
		WHERE id = ? AND updated_at = ?
	`,
		c.EasinessFactor,
		c.Repetitions,
		c.Interval,
		nullMillis(c.DueDate),
		nullMillis(c.LastReviewed),
		toMillis(c.UpdatedAt),
		c.ID,
		toMillis(readAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule for card %s: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := db.GetCard(ctx, c.ID); err != nil {
		return err
	}
	return fmt.Errorf("card %s: %w", c.ID, domain.ErrConflict)
}

func deleteCard(ctx context.Context, e sqlx.ExecerContext, id string) error {
	res, err := e.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return expectOne(res, "card "+id)
}

// DeleteCard removes a card and its review logs.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	return deleteCard(ctx, db.conn, id)
}

// DeleteCard removes a card inside the transaction.
func (tx *Tx) DeleteCard(ctx context.Context, id string) error {
	return deleteCard(ctx, tx.tx, id)
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
