package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type deckRow struct {
	ID          string        `db:"id"`
	Name        string        `db:"name"`
	Description string        `db:"description"`
	Tags        string        `db:"tags"`
	SourceID    sql.NullInt64 `db:"source_id"`
	Path        string        `db:"path"`
	CreatedAt   int64         `db:"created_at"`
	UpdatedAt   int64         `db:"updated_at"`
}

const deckColumns = `id, name, description, tags, source_id, path, created_at, updated_at`

func newDeckRow(d domain.Deck) (deckRow, error) {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return deckRow{}, fmt.Errorf("failed to encode tags for deck %s: %w", d.ID, err)
	}
	row := deckRow{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Tags:        string(encoded),
		Path:        d.Path,
		CreatedAt:   toMillis(d.CreatedAt),
		UpdatedAt:   toMillis(d.UpdatedAt),
	}
	if d.SourceID != nil {
		row.SourceID = sql.NullInt64{Int64: *d.SourceID, Valid: true}
	}
	return row, nil
}

func (r deckRow) deck() (domain.Deck, error) {
	d := domain.Deck{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Path:        r.Path,
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Tags), &d.Tags); err != nil {
		return domain.Deck{}, fmt.Errorf("failed to decode tags for deck %s: %w", r.ID, err)
	}
	if r.SourceID.Valid {
		id := r.SourceID.Int64
		d.SourceID = &id
	}
	return d, nil
}

func insertDeck(ctx context.Context, e sqlx.ExtContext, d domain.Deck) error {
	row, err := newDeckRow(d)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, e, `
		INSERT INTO decks (`+deckColumns+`)
		VALUES (:id, :name, :description, :tags, :source_id, :path, :created_at, :updated_at)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", d.ID, err)
	}
	return nil
}

// InsertDeck stores a new deck.
func (db *DB) InsertDeck(ctx context.Context, d domain.Deck) error {
	return insertDeck(ctx, db.conn, d)
}

// InsertDeck stores a new deck inside the transaction.
func (tx *Tx) InsertDeck(ctx context.Context, d domain.Deck) error {
	return insertDeck(ctx, tx.tx, d)
}

func getDeck(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (domain.Deck, error) {
	var row deckRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		return domain.Deck{}, err
	}
	return row.deck()
}

// GetDeck retrieves a deck by ID.
func (db *DB) GetDeck(ctx context.Context, id string) (domain.Deck, error) {
	d, err := getDeck(ctx, db.conn, `SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("deck %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to get deck %s: %w", id, err)
	}
	return d, nil
}

// FindDeckBySourcePath returns the deck imported from path within a source.
func (db *DB) FindDeckBySourcePath(ctx context.Context, sourceID int64, path string) (domain.Deck, error) {
	d, err := getDeck(ctx, db.conn,
		`SELECT `+deckColumns+` FROM decks WHERE source_id = ? AND path = ?`, sourceID, path)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("deck for %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to find deck for %s: %w", path, err)
	}
	return d, nil
}

func listDecks(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]domain.Deck, error) {
	var rows []deckRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	decks := make([]domain.Deck, 0, len(rows))
	for _, r := range rows {
		d, err := r.deck()
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, nil
}

// ListDecks returns all decks ordered by name.
func (db *DB) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	decks, err := listDecks(ctx, db.conn, `SELECT `+deckColumns+` FROM decks ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// ListDecksBySource returns the decks imported from a source.
func (db *DB) ListDecksBySource(ctx context.Context, sourceID int64) ([]domain.Deck, error) {
	decks, err := listDecks(ctx, db.conn,
		`SELECT `+deckColumns+` FROM decks WHERE source_id = ? ORDER BY path`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks for source %d: %w", sourceID, err)
	}
	return decks, nil
}

// UpdateDeck replaces the deck's name, description and tags.
func (db *DB) UpdateDeck(ctx context.Context, d domain.Deck) error {
	row, err := newDeckRow(d)
	if err != nil {
		return err
	}
	res, err := sqlx.NamedExecContext(ctx, db.conn, `
		UPDATE decks SET name = :name, description = :description, tags = :tags, updated_at = :updated_at
		WHERE id = :id
	`, row)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", d.ID, err)
	}
	return expectOne(res, "deck "+d.ID)
}

// DeleteDeck removes a deck together with its cards and their review logs.
func (db *DB) DeleteDeck(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	return expectOne(res, "deck "+id)
}
