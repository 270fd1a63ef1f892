package share

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// BackupVersion is the only backup format Import understands.
const BackupVersion = 2

var (
	ErrUnsupportedVersion = errors.New("unsupported backup version")
	ErrInvalidBackup      = errors.New("invalid backup")
)

// All timestamps are epoch milliseconds; optional ones are omitted when absent.
type backup struct {
	Version    int             `json:"version"`
	ExportedAt int64           `json:"exported_at"`
	Sources    []backupSource  `json:"sources" validate:"dive"`
	Decks      []backupDeck    `json:"decks" validate:"dive"`
	Cards      []backupCard    `json:"cards" validate:"dive"`
	ReviewLogs []backupLog     `json:"review_logs" validate:"dive"`
	Sessions   []backupSession `json:"sessions" validate:"dive"`
	Stats      backupStats     `json:"stats"`
}

type backupSource struct {
	ID          int64  `json:"id" validate:"gt=0"`
	Path        string `json:"path" validate:"required"`
	Type        string `json:"type" validate:"oneof=local git"`
	LastScanned *int64 `json:"last_scanned,omitempty"`
}

type backupDeck struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SourceID    *int64   `json:"source_id,omitempty"`
	Path        string   `json:"path,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

type backupCard struct {
	ID             string  `json:"id" validate:"required"`
	DeckID         string  `json:"deck_id" validate:"required"`
	Front          string  `json:"front" validate:"required"`
	Back           string  `json:"back"`
	Hash           string  `json:"hash,omitempty"`
	EasinessFactor float64 `json:"easiness_factor" validate:"gte=1.3"`
	Repetitions    int     `json:"repetitions" validate:"gte=0"`
	Interval       int     `json:"interval" validate:"gte=0"`
	DueDate        *int64  `json:"due_date,omitempty"`
	LastReviewed   *int64  `json:"last_reviewed,omitempty"`
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

type backupLog struct {
	CardID     string         `json:"card_id" validate:"required"`
	SessionID  string         `json:"session_id,omitempty"`
	Outcome    domain.Outcome `json:"outcome"`
	Interval   int            `json:"interval"`
	ReviewedAt int64          `json:"reviewed_at"`
}

type backupSession struct {
	ID         string                 `json:"id" validate:"required"`
	DeckID     string                 `json:"deck_id"`
	StartedAt  int64                  `json:"started_at"`
	DurationMS int64                  `json:"duration_ms" validate:"gte=0"`
	Reviews    []domain.SessionReview `json:"reviews"`
}

type backupStats struct {
	Streak             int    `json:"streak" validate:"gte=0"`
	LastStudyDate      *int64 `json:"last_study_date,omitempty"`
	TotalCardsReviewed int    `json:"total_cards_reviewed" validate:"gte=0"`
	TotalStudyTimeMS   int64  `json:"total_study_time_ms" validate:"gte=0"`
	XP                 int    `json:"xp" validate:"gte=0"`
	Level              int    `json:"level" validate:"gte=1"`
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func optMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func optTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

// Export writes snap as an indented JSON backup.
func Export(w io.Writer, snap domain.Snapshot, now time.Time) error {
	b := backup{
		Version:    BackupVersion,
		ExportedAt: millis(now),
		Sources:    make([]backupSource, 0, len(snap.Sources)),
		Decks:      make([]backupDeck, 0, len(snap.Decks)),
		Cards:      make([]backupCard, 0, len(snap.Cards)),
		ReviewLogs: make([]backupLog, 0, len(snap.ReviewLogs)),
		Sessions:   make([]backupSession, 0, len(snap.Sessions)),
		Stats: backupStats{
			Streak:             snap.Stats.Streak,
			LastStudyDate:      optMillis(snap.Stats.LastStudyDate),
			TotalCardsReviewed: snap.Stats.TotalCardsReviewed,
			TotalStudyTimeMS:   snap.Stats.TotalStudyTime.Milliseconds(),
			XP:                 snap.Stats.XP,
			Level:              snap.Stats.Level,
		},
	}
	for _, s := range snap.Sources {
		b.Sources = append(b.Sources, backupSource{ID: s.ID, Path: s.Path, Type: string(s.Type), LastScanned: optMillis(s.LastScanned)})
	}
	for _, d := range snap.Decks {
		b.Decks = append(b.Decks, backupDeck{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Tags:        d.Tags,
			SourceID:    d.SourceID,
			Path:        d.Path,
			CreatedAt:   millis(d.CreatedAt),
			UpdatedAt:   millis(d.UpdatedAt),
		})
	}
	for _, c := range snap.Cards {
		b.Cards = append(b.Cards, backupCard{
			ID:             c.ID,
			DeckID:         c.DeckID,
			Front:          c.Front,
			Back:           c.Back,
			Hash:           c.Hash,
			EasinessFactor: c.EasinessFactor,
			Repetitions:    c.Repetitions,
			Interval:       c.Interval,
			DueDate:        optMillis(c.DueDate),
			LastReviewed:   optMillis(c.LastReviewed),
			CreatedAt:      millis(c.CreatedAt),
			UpdatedAt:      millis(c.UpdatedAt),
		})
	}
	for _, l := range snap.ReviewLogs {
		b.ReviewLogs = append(b.ReviewLogs, backupLog{
			CardID:     l.CardID,
			SessionID:  l.SessionID,
			Outcome:    l.Outcome,
			Interval:   l.Interval,
			ReviewedAt: millis(l.ReviewedAt),
		})
	}
	for _, s := range snap.Sessions {
		b.Sessions = append(b.Sessions, backupSession{
			ID:         s.ID,
			DeckID:     s.DeckID,
			StartedAt:  millis(s.StartedAt),
			DurationMS: s.Duration.Milliseconds(),
			Reviews:    s.Reviews,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Import reads a backup written by Export. Records that break the card
// invariants, or cards and logs that point at missing decks or cards, make
// the whole backup invalid.
func Import(r io.Reader) (domain.Snapshot, error) {
	var header struct {
		Version int `json:"version"`
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to read backup: %w", err)
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if header.Version != BackupVersion {
		return domain.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}

	var b backup
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if err := validator.New().Struct(b); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	snap := domain.Snapshot{
		Stats: domain.Stats{
			Streak:             b.Stats.Streak,
			LastStudyDate:      optTime(b.Stats.LastStudyDate),
			TotalCardsReviewed: b.Stats.TotalCardsReviewed,
			TotalStudyTime:     time.Duration(b.Stats.TotalStudyTimeMS) * time.Millisecond,
			XP:                 b.Stats.XP,
			Level:              b.Stats.Level,
		},
	}

	sources := make(map[int64]bool, len(b.Sources))
	for _, s := range b.Sources {
		sources[s.ID] = true
		snap.Sources = append(snap.Sources, domain.Source{
			ID: s.ID, Path: s.Path, Type: domain.SourceType(s.Type), LastScanned: optTime(s.LastScanned),
		})
	}

	decks := make(map[string]bool, len(b.Decks))
	for _, d := range b.Decks {
		if d.SourceID != nil && !sources[*d.SourceID] {
			return domain.Snapshot{}, fmt.Errorf("%w: deck %s references unknown source %d", ErrInvalidBackup, d.ID, *d.SourceID)
		}
		decks[d.ID] = true
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		snap.Decks = append(snap.Decks, domain.Deck{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Tags:        tags,
			SourceID:    d.SourceID,
			Path:        d.Path,
			CreatedAt:   time.UnixMilli(d.CreatedAt),
			UpdatedAt:   time.UnixMilli(d.UpdatedAt),
		})
	}

	cards := make(map[string]bool, len(b.Cards))
	for _, c := range b.Cards {
		if !decks[c.DeckID] {
			return domain.Snapshot{}, fmt.Errorf("%w: card %s references unknown deck %s", ErrInvalidBackup, c.ID, c.DeckID)
		}
		cards[c.ID] = true
		snap.Cards = append(snap.Cards, domain.Card{
			ID:             c.ID,
			DeckID:         c.DeckID,
			Front:          c.Front,
			Back:           c.Back,
			Hash:           c.Hash,
			EasinessFactor: c.EasinessFactor,
			Repetitions:    c.Repetitions,
			Interval:       c.Interval,
			DueDate:        optTime(c.DueDate),
			LastReviewed:   optTime(c.LastReviewed),
			CreatedAt:      time.UnixMilli(c.CreatedAt),
			UpdatedAt:      time.UnixMilli(c.UpdatedAt),
		})
	}

	for _, l := range b.ReviewLogs {
		if !cards[l.CardID] {
			return domain.Snapshot{}, fmt.Errorf("%w: review log references unknown card %s", ErrInvalidBackup, l.CardID)
		}
		snap.ReviewLogs = append(snap.ReviewLogs, domain.ReviewLog{
			CardID:     l.CardID,
			SessionID:  l.SessionID,
			Outcome:    l.Outcome,
			Interval:   l.Interval,
			ReviewedAt: time.UnixMilli(l.ReviewedAt),
		})
	}

	for _, s := range b.Sessions {
		reviews := s.Reviews
		if reviews == nil {
			reviews = []domain.SessionReview{}
		}
		snap.Sessions = append(snap.Sessions, domain.SessionRecord{
			ID:        s.ID,
			DeckID:    s.DeckID,
			StartedAt: time.UnixMilli(s.StartedAt),
			Duration:  time.Duration(s.DurationMS) * time.Millisecond,
			Reviews:   reviews,
		})
	}
	return snap, nil
}
