// Package sm2 schedules flashcard reviews with a variant of the SuperMemo-2
// algorithm and selects the cards that are due.
//
// Everything here is pure: the current time is always passed in and input cards
// are never modified, so the functions are safe to call from any goroutine.
package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// perfectQuality is the reference grade the easiness penalty is measured against.
const perfectQuality = 4

// Params holds the tunable values of the scheduler.
type Params struct {
	InitialEasinessFactor float64 // EF given to cards that have none
	MinEasinessFactor     float64 // floor for EF after every update
	FirstInterval         int     // days after the first successful review
	SecondInterval        int     // days after the second successful review in a row
}

// DefaultParams returns the classic SM-2 values.
func DefaultParams() *Params {
	return &Params{
		InitialEasinessFactor: domain.DefaultEasinessFactor,
		MinEasinessFactor:     domain.MinEasinessFactor,
		FirstInterval:         1,
		SecondInterval:        6,
	}
}

// Quality maps an outcome onto the 0-3 scale used by the easiness formula.
// It is deliberately a separate table from the XP rewards in package progress.
func Quality(o domain.Outcome) int {
	switch o {
	case domain.Forgot:
		return 0
	case domain.Hard:
		return 1
	case domain.Good:
		return 2
	case domain.Easy:
		return 3
	}
	return 0
}

// NextState computes the card's scheduling state after a review graded outcome at now.
//
// A lapse (Forgot or Hard) resets the repetition streak and schedules the card for
// tomorrow without touching the easiness factor. A success adjusts the easiness
// factor and grows the interval from the repetition count before the review.
// The due date is always midnight of now's day plus the interval.
func (p *Params) NextState(card domain.Card, outcome domain.Outcome, now time.Time) (domain.Card, error) {
	if !outcome.IsValid() {
		return card, fmt.Errorf("%w: %d", domain.ErrInvalidOutcome, int(outcome))
	}

	next := card.Clone()
	ef := p.currentEasinessFactor(card.EasinessFactor)
	reps := max(card.Repetitions, 0)

	if outcome.IsLapse() {
		next.Repetitions = 0
		next.Interval = 1
		next.EasinessFactor = ef
	} else {
		next.EasinessFactor = p.calculateEasinessFactor(ef, outcome)
		next.Interval = p.calculateInterval(reps, card.Interval, next.EasinessFactor)
		next.Repetitions = reps + 1
	}

	due := StartOfDay(now).AddDate(0, 0, next.Interval)
	reviewed := now
	next.DueDate = &due
	next.LastReviewed = &reviewed
	return next, nil
}

// Preview returns the state the card would move to for each outcome.
func (p *Params) Preview(card domain.Card, now time.Time) map[domain.Outcome]domain.Card {
	out := make(map[domain.Outcome]domain.Card, len(domain.Outcomes))
	for _, o := range domain.Outcomes {
		next, _ := p.NextState(card, o, now)
		out[o] = next
	}
	return out
}

// currentEasinessFactor repairs a missing or corrupted stored EF.
func (p *Params) currentEasinessFactor(ef float64) float64 {
	if ef <= 0 || math.IsNaN(ef) {
		ef = p.InitialEasinessFactor
	}
	return math.Max(p.MinEasinessFactor, ef)
}

// calculateEasinessFactor applies EF' = EF + (0.1 - (4-q)*(0.08 + (4-q)*0.02)).
func (p *Params) calculateEasinessFactor(ef float64, outcome domain.Outcome) float64 {
	penalty := float64(perfectQuality - Quality(outcome))
	newEF := ef + (0.1 - penalty*(0.08+penalty*0.02))
	return math.Max(p.MinEasinessFactor, newEF)
}

// calculateInterval picks the next interval in days from the pre-review repetition count.
func (p *Params) calculateInterval(repetitions, interval int, ef float64) int {
	switch repetitions {
	case 0:
		return p.FirstInterval
	case 1:
		return p.SecondInterval
	}
	return max(1, int(math.Round(float64(interval)*ef)))
}

// StartOfDay returns midnight at the start of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
