package progress

import (
	"testing"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func TestXPForOutcome(t *testing.T) {
	testCases := []struct {
		outcome domain.Outcome
		want    int
	}{
		{domain.Forgot, 1},
		{domain.Hard, 2},
		{domain.Good, 3},
		{domain.Easy, 5},
		{domain.Outcome(-1), 0},
		{domain.Outcome(5), 0},
	}
	for _, tc := range testCases {
		t.Run(tc.outcome.String(), func(t *testing.T) {
			if got := XPForOutcome(tc.outcome); got != tc.want {
				t.Errorf("XPForOutcome(%s) = %d, want %d", tc.outcome, got, tc.want)
			}
		})
	}
}

func TestRecordReview(t *testing.T) {
	stats := domain.NewStats()
	stats = RecordReview(stats, domain.Easy)
	stats = RecordReview(stats, domain.Forgot)

	if stats.TotalCardsReviewed != 2 {
		t.Errorf("Expected 2 reviewed cards, got %d", stats.TotalCardsReviewed)
	}
	if stats.XP != 6 {
		t.Errorf("Expected 6 XP, got %d", stats.XP)
	}
}

func TestAddXPLevels(t *testing.T) {
	testCases := []struct {
		name      string
		start     domain.Stats
		points    int
		wantXP    int
		wantLevel int
	}{
		{name: "below first threshold", start: domain.Stats{Level: 1}, points: 99, wantXP: 99, wantLevel: 1},
		{name: "reaches level 2", start: domain.Stats{XP: 99, Level: 1}, points: 1, wantXP: 100, wantLevel: 2},
		{name: "level 2 needs 400", start: domain.Stats{XP: 100, Level: 2}, points: 250, wantXP: 350, wantLevel: 2},
		{name: "reaches level 3", start: domain.Stats{XP: 350, Level: 2}, points: 50, wantXP: 400, wantLevel: 3},
		{name: "zero level treated as 1", start: domain.Stats{}, points: 3, wantXP: 3, wantLevel: 1},
		{name: "non-positive points ignored", start: domain.Stats{XP: 10, Level: 1}, points: -5, wantXP: 10, wantLevel: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := AddXP(tc.start, tc.points)
			if got.XP != tc.wantXP || got.Level != tc.wantLevel {
				t.Errorf("AddXP() = xp %d level %d, want xp %d level %d", got.XP, got.Level, tc.wantXP, tc.wantLevel)
			}
		})
	}
}

func TestXPToNextLevel(t *testing.T) {
	if got := XPToNextLevel(domain.Stats{XP: 40, Level: 1}); got != 60 {
		t.Errorf("Expected 60 XP to level 2, got %d", got)
	}
	if got := XPToNextLevel(domain.Stats{XP: 150, Level: 2}); got != 250 {
		t.Errorf("Expected 250 XP to level 3, got %d", got)
	}
}

func TestUpdateStreak(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	last := func(tm time.Time) *time.Time { return &tm }

	testCases := []struct {
		name  string
		start domain.Stats
		now   time.Time
		want  int
	}{
		{name: "first study", start: domain.Stats{}, now: day(10, 9), want: 1},
		{name: "same day", start: domain.Stats{Streak: 4, LastStudyDate: last(day(10, 8))}, now: day(10, 22), want: 4},
		{name: "next day", start: domain.Stats{Streak: 4, LastStudyDate: last(day(9, 23))}, now: day(10, 1), want: 5},
		{name: "gap resets", start: domain.Stats{Streak: 4, LastStudyDate: last(day(7, 12))}, now: day(10, 12), want: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := UpdateStreak(tc.start, tc.now)
			if got.Streak != tc.want {
				t.Errorf("UpdateStreak() streak = %d, want %d", got.Streak, tc.want)
			}
			if got.LastStudyDate == nil || !got.LastStudyDate.Equal(tc.now) {
				t.Errorf("Expected last study date %v, got %v", tc.now, got.LastStudyDate)
			}
		})
	}
}

func TestCurrentStreak(t *testing.T) {
	studied := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	stats := domain.Stats{Streak: 3, LastStudyDate: &studied}

	if got := CurrentStreak(stats, studied.AddDate(0, 0, 1)); got != 3 {
		t.Errorf("Expected streak 3 the day after, got %d", got)
	}
	if got := CurrentStreak(stats, studied.AddDate(0, 0, 2)); got != 0 {
		t.Errorf("Expected lapsed streak to read 0, got %d", got)
	}
	if got := CurrentStreak(domain.NewStats(), studied); got != 0 {
		t.Errorf("Expected 0 for a user who never studied, got %d", got)
	}
}

func TestAddStudyTime(t *testing.T) {
	stats := AddStudyTime(domain.Stats{}, 90*time.Second)
	stats = AddStudyTime(stats, -time.Second)
	if stats.TotalStudyTime != 90*time.Second {
		t.Errorf("Expected 90s of study time, got %v", stats.TotalStudyTime)
	}
}
