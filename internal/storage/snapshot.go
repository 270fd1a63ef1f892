package storage

import (
	"context"
	"fmt"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Snapshot reads the whole library in one transaction.
func (db *DB) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := db.InTx(ctx, func(q *Tx) error {
		var sources []sourceRow
		if err := q.tx.SelectContext(ctx, &sources, `SELECT id, path, type, last_scanned FROM sources ORDER BY id`); err != nil {
			return fmt.Errorf("failed to read sources: %w", err)
		}
		for _, r := range sources {
			snap.Sources = append(snap.Sources, r.source())
		}

		decks, err := listDecks(ctx, q.tx, `SELECT `+deckColumns+` FROM decks ORDER BY created_at, id`)
		if err != nil {
			return fmt.Errorf("failed to read decks: %w", err)
		}
		snap.Decks = decks

		var cards []cardRow
		if err := q.tx.SelectContext(ctx, &cards, `SELECT `+cardColumns+` FROM cards ORDER BY created_at, id`); err != nil {
			return fmt.Errorf("failed to read cards: %w", err)
		}
		snap.Cards = cardsFromRows(cards)

		var logs []reviewLogRow
		if err := q.tx.SelectContext(ctx, &logs, `
			SELECT id, card_id, session_id, outcome, interval_days, reviewed_at
			FROM review_logs ORDER BY id
		`); err != nil {
			return fmt.Errorf("failed to read review logs: %w", err)
		}
		for _, r := range logs {
			snap.ReviewLogs = append(snap.ReviewLogs, r.log())
		}

		sessions, err := listSessions(ctx, q.tx)
		if err != nil {
			return err
		}
		snap.Sessions = sessions

		snap.Stats, err = getStats(ctx, q.tx)
		return err
	})
	return snap, err
}

// Restore replaces the whole library with snap. Nothing is changed if any
// record fails to insert.
func (db *DB) Restore(ctx context.Context, snap domain.Snapshot) error {
	return db.InTx(ctx, func(tx *Tx) error {
		for _, table := range []string{"session_reviews", "sessions", "review_logs", "cards", "decks", "sources"} {
			if _, err := tx.tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, s := range snap.Sources {
			if _, err := tx.tx.ExecContext(ctx, `
				INSERT INTO sources (id, path, type, last_scanned) VALUES (?, ?, ?, ?)
			`, s.ID, s.Path, string(s.Type), nullMillis(s.LastScanned)); err != nil {
				return fmt.Errorf("failed to restore source %s: %w", s.Path, err)
			}
		}
		for _, d := range snap.Decks {
			if err := tx.InsertDeck(ctx, d); err != nil {
				return err
			}
		}
		for _, c := range snap.Cards {
			if err := tx.InsertCard(ctx, c); err != nil {
				return err
			}
		}
		for _, l := range snap.ReviewLogs {
			if err := insertReviewLog(ctx, tx.tx, l); err != nil {
				return err
			}
		}
		for _, s := range snap.Sessions {
			if err := tx.InsertSession(ctx, s); err != nil {
				return err
			}
		}
		return tx.SaveStats(ctx, snap.Stats)
	})
}
