package sm2

import (
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// IsDue reports whether the card may be reviewed at now. Cards without a due
// date are always due; otherwise the comparison is by day, not by time of day.
func IsDue(card domain.Card, now time.Time) bool {
	if card.DueDate == nil {
		return true
	}
	return !card.DueDate.After(StartOfDay(now))
}

// SelectDue returns the due cards in their original order.
func SelectDue(cards []domain.Card, now time.Time) []domain.Card {
	due := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if IsDue(c, now) {
			due = append(due, c)
		}
	}
	return due
}

// CountDue returns how many of cards are due at now.
func CountDue(cards []domain.Card, now time.Time) int {
	n := 0
	for _, c := range cards {
		if IsDue(c, now) {
			n++
		}
	}
	return n
}
