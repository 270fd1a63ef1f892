// Package progress keeps the gamification record: experience points, levels,
// the daily study streak and total study time.
package progress

import (
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/sm2"
)

// xpPerLevel scales how much XP each level needs.
const xpPerLevel = 100

// XPForOutcome is the flat reward for reviewing a card. Unknown outcomes earn nothing.
func XPForOutcome(o domain.Outcome) int {
	switch o {
	case domain.Forgot:
		return 1
	case domain.Hard:
		return 2
	case domain.Good:
		return 3
	case domain.Easy:
		return 5
	}
	return 0
}

// RecordReview counts one reviewed card and awards its XP.
func RecordReview(stats domain.Stats, o domain.Outcome) domain.Stats {
	stats.TotalCardsReviewed++
	return AddXP(stats, XPForOutcome(o))
}

// AddXP adds points and raises the level once enough XP has accumulated.
// Levels never go down.
func AddXP(stats domain.Stats, points int) domain.Stats {
	if points <= 0 {
		return stats
	}
	if stats.Level < 1 {
		stats.Level = 1
	}
	stats.XP += points
	if lvl := stats.XP/(stats.Level*xpPerLevel) + 1; lvl > stats.Level {
		stats.Level = lvl
	}
	return stats
}

// UpdateStreak registers a study day. Studying again on the same day keeps the
// streak, studying the day after extends it, and anything else restarts it at 1.
func UpdateStreak(stats domain.Stats, now time.Time) domain.Stats {
	today := sm2.StartOfDay(now)
	switch {
	case stats.LastStudyDate == nil:
		stats.Streak = 1
	default:
		last := sm2.StartOfDay(stats.LastStudyDate.In(now.Location()))
		switch {
		case last.Equal(today):
			if stats.Streak == 0 {
				stats.Streak = 1
			}
		case last.Equal(today.AddDate(0, 0, -1)):
			stats.Streak++
		default:
			stats.Streak = 1
		}
	}
	studied := now
	stats.LastStudyDate = &studied
	return stats
}

// CurrentStreak returns the streak as seen at now: a streak whose last study day
// is before yesterday has lapsed and reads as zero.
func CurrentStreak(stats domain.Stats, now time.Time) int {
	if stats.LastStudyDate == nil {
		return 0
	}
	last := sm2.StartOfDay(stats.LastStudyDate.In(now.Location()))
	if last.Before(sm2.StartOfDay(now).AddDate(0, 0, -1)) {
		return 0
	}
	return stats.Streak
}

// AddStudyTime accumulates time spent in study sessions.
func AddStudyTime(stats domain.Stats, d time.Duration) domain.Stats {
	if d > 0 {
		stats.TotalStudyTime += d
	}
	return stats
}

// XPToNextLevel returns how many more points the next level needs.
func XPToNextLevel(stats domain.Stats) int {
	level := max(stats.Level, 1)
	return max(level*level*xpPerLevel-stats.XP, 0)
}
