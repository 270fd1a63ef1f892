package domain

import "time"

// Stats is the user's running study record.
type Stats struct {
	Streak             int           `json:"streak"`
	LastStudyDate      *time.Time    `json:"last_study_date,omitempty"`
	TotalCardsReviewed int           `json:"total_cards_reviewed"`
	TotalStudyTime     time.Duration `json:"total_study_time"`
	XP                 int           `json:"xp"`
	Level              int           `json:"level"`
}

// NewStats returns the record of a user who has never studied.
func NewStats() Stats {
	return Stats{Level: 1}
}

// SessionReview is one graded card inside a finished session.
type SessionReview struct {
	CardID  string  `json:"card_id"`
	Outcome Outcome `json:"outcome"`
}

// SessionRecord is a finished study session.
type SessionRecord struct {
	ID        string          `json:"id"`
	DeckID    string          `json:"deck_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Reviews   []SessionReview `json:"reviews"`
}
