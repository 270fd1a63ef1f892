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

type reviewLogRow struct {
	ID         int64  `db:"id"`
	CardID     string `db:"card_id"`
	SessionID  string `db:"session_id"`
	Outcome    int    `db:"outcome"`
	Interval   int    `db:"interval_days"`
	ReviewedAt int64  `db:"reviewed_at"`
}

func insertReviewLog(ctx context.Context, e sqlx.ExecerContext, l domain.ReviewLog) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO review_logs (card_id, session_id, outcome, interval_days, reviewed_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.CardID, l.SessionID, int(l.Outcome), l.Interval, toMillis(l.ReviewedAt))
	if err != nil {
		return fmt.Errorf("failed to insert review log for card %s: %w", l.CardID, err)
	}
	return nil
}

// InsertReviewLog appends a review to a card's history.
func (db *DB) InsertReviewLog(ctx context.Context, l domain.ReviewLog) error {
	return insertReviewLog(ctx, db.conn, l)
}

// ListReviewLogs returns a card's reviews, oldest first.
func (db *DB) ListReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	var rows []reviewLogRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT id, card_id, session_id, outcome, interval_days, reviewed_at
		FROM review_logs WHERE card_id = ? ORDER BY reviewed_at, id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review logs for card %s: %w", cardID, err)
	}
	logs := make([]domain.ReviewLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.log())
	}
	return logs, nil
}

func (r reviewLogRow) log() domain.ReviewLog {
	return domain.ReviewLog{
		ID:         r.ID,
		CardID:     r.CardID,
		SessionID:  r.SessionID,
		Outcome:    domain.Outcome(r.Outcome),
		Interval:   r.Interval,
		ReviewedAt: fromMillis(r.ReviewedAt),
	}
}

func insertSession(ctx context.Context, e sqlx.ExtContext, s domain.SessionRecord) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO sessions (id, deck_id, started_at, duration_ms)
		VALUES (?, ?, ?, ?)
	`, s.ID, s.DeckID, toMillis(s.StartedAt), s.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	for i, r := range s.Reviews {
		_, err := e.ExecContext(ctx, `
			INSERT INTO session_reviews (session_id, position, card_id, outcome)
			VALUES (?, ?, ?, ?)
		`, s.ID, i, r.CardID, int(r.Outcome))
		if err != nil {
			return fmt.Errorf("failed to insert review %d of session %s: %w", i, s.ID, err)
		}
	}
	return nil
}

// InsertSession records a finished study session.
func (db *DB) InsertSession(ctx context.Context, s domain.SessionRecord) error {
	return db.InTx(ctx, func(tx *Tx) error {
		return tx.InsertSession(ctx, s)
	})
}

// InsertSession records a finished study session inside the transaction.
func (tx *Tx) InsertSession(ctx context.Context, s domain.SessionRecord) error {
	return insertSession(ctx, tx.tx, s)
}

type sessionRow struct {
	ID         string `db:"id"`
	DeckID     string `db:"deck_id"`
	StartedAt  int64  `db:"started_at"`
	DurationMS int64  `db:"duration_ms"`
}

type sessionReviewRow struct {
	SessionID string `db:"session_id"`
	CardID    string `db:"card_id"`
	Outcome   int    `db:"outcome"`
}

// ListSessions returns every recorded session, oldest first.
func (db *DB) ListSessions(ctx context.Context) ([]domain.SessionRecord, error) {
	return listSessions(ctx, db.conn)
}

func listSessions(ctx context.Context, q sqlx.QueryerContext) ([]domain.SessionRecord, error) {
	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT id, deck_id, started_at, duration_ms FROM sessions ORDER BY started_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var reviews []sessionReviewRow
	if err := sqlx.SelectContext(ctx, q, &reviews,
		`SELECT session_id, card_id, outcome FROM session_reviews ORDER BY session_id, position`); err != nil {
		return nil, fmt.Errorf("failed to list session reviews: %w", err)
	}

	bySession := make(map[string][]domain.SessionReview, len(rows))
	for _, r := range reviews {
		bySession[r.SessionID] = append(bySession[r.SessionID], domain.SessionReview{
			CardID:  r.CardID,
			Outcome: domain.Outcome(r.Outcome),
		})
	}

	sessions := make([]domain.SessionRecord, 0, len(rows))
	for _, r := range rows {
		rs := bySession[r.ID]
		if rs == nil {
			rs = []domain.SessionReview{}
		}
		sessions = append(sessions, domain.SessionRecord{
			ID:        r.ID,
			DeckID:    r.DeckID,
			StartedAt: fromMillis(r.StartedAt),
			Duration:  time.Duration(r.DurationMS) * time.Millisecond,
			Reviews:   rs,
		})
	}
	return sessions, nil
}

type statsRow struct {
	Streak             int           `db:"streak"`
	LastStudyDate      sql.NullInt64 `db:"last_study_date"`
	TotalCardsReviewed int           `db:"total_cards_reviewed"`
	TotalStudyTimeMS   int64         `db:"total_study_time_ms"`
	XP                 int           `db:"xp"`
	Level              int           `db:"level"`
}

func getStats(ctx context.Context, q sqlx.QueryerContext) (domain.Stats, error) {
	var row statsRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT streak, last_study_date, total_cards_reviewed, total_study_time_ms, xp, level
		FROM stats WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewStats(), nil
	}
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return domain.Stats{
		Streak:             row.Streak,
		LastStudyDate:      timePtr(row.LastStudyDate),
		TotalCardsReviewed: row.TotalCardsReviewed,
		TotalStudyTime:     time.Duration(row.TotalStudyTimeMS) * time.Millisecond,
		XP:                 row.XP,
		Level:              row.Level,
	}, nil
}

// GetStats returns the study record, or a fresh one if nothing was saved yet.
func (db *DB) GetStats(ctx context.Context) (domain.Stats, error) {
	return getStats(ctx, db.conn)
}

// UpdateStats applies fn to the stored study record atomically and returns the result.
func (db *DB) UpdateStats(ctx context.Context, fn func(domain.Stats) domain.Stats) (domain.Stats, error) {
	var updated domain.Stats
	err := db.InTx(ctx, func(tx *Tx) error {
		current, err := getStats(ctx, tx.tx)
		if err != nil {
			return err
		}
		updated = fn(current)
		return saveStats(ctx, tx.tx, updated)
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return updated, nil
}

func saveStats(ctx context.Context, e sqlx.ExecerContext, s domain.Stats) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO stats (id, streak, last_study_date, total_cards_reviewed, total_study_time_ms, xp, level)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			streak = excluded.streak,
			last_study_date = excluded.last_study_date,
			total_cards_reviewed = excluded.total_cards_reviewed,
			total_study_time_ms = excluded.total_study_time_ms,
			xp = excluded.xp,
			level = excluded.level
	`,
		s.Streak,
		nullMillis(s.LastStudyDate),
		s.TotalCardsReviewed,
		s.TotalStudyTime.Milliseconds(),
		s.XP,
		s.Level,
	)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// SaveStats replaces the study record.
func (db *DB) SaveStats(ctx context.Context, s domain.Stats) error {
	return saveStats(ctx, db.conn, s)
}

// SaveStats replaces the study record inside the transaction.
func (tx *Tx) SaveStats(ctx context.Context, s domain.Stats) error {
	return saveStats(ctx, tx.tx, s)
}
