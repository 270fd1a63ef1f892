package sm2

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const epsilon = 1e-9

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestNextStateNewCardGood(t *testing.T) {
	params := DefaultParams()
	now := date(2024, 1, 1)
	card := domain.Card{ID: "c1", EasinessFactor: 2.5}

	next, err := params.NextState(card, domain.Good, now)
	if err != nil {
		t.Fatalf("NextState() returned an unexpected error: %v", err)
	}

	if next.Repetitions != 1 {
		t.Errorf("Expected repetitions 1, got %d", next.Repetitions)
	}
	if next.Interval != 1 {
		t.Errorf("Expected interval 1, got %d", next.Interval)
	}
	// 2.5 + (0.1 - 2*(0.08 + 2*0.02)) = 2.36
	if math.Abs(next.EasinessFactor-2.36) > epsilon {
		t.Errorf("Expected easiness factor 2.36, got %f", next.EasinessFactor)
	}
	if next.DueDate == nil || !next.DueDate.Equal(date(2024, 1, 2)) {
		t.Errorf("Expected due date 2024-01-02, got %v", next.DueDate)
	}
	if next.LastReviewed == nil || !next.LastReviewed.Equal(now) {
		t.Errorf("Expected last reviewed %v, got %v", now, next.LastReviewed)
	}
	if next.ID != "c1" {
		t.Errorf("Expected ID to be copied, got %q", next.ID)
	}
}

func TestNextStateSecondRepetitionEasy(t *testing.T) {
	params := DefaultParams()
	card := domain.Card{EasinessFactor: 2.36, Repetitions: 1, Interval: 1}

	next, err := params.NextState(card, domain.Easy, date(2024, 1, 2))
	if err != nil {
		t.Fatalf("NextState() returned an unexpected error: %v", err)
	}
	// Easy has penalty 1: 0.1 - 1*(0.08 + 0.02) = 0
	if math.Abs(next.EasinessFactor-2.36) > epsilon {
		t.Errorf("Expected easiness factor 2.36, got %f", next.EasinessFactor)
	}
	if next.Interval != 6 {
		t.Errorf("Expected interval 6, got %d", next.Interval)
	}
	if next.Repetitions != 2 {
		t.Errorf("Expected repetitions 2, got %d", next.Repetitions)
	}
	if !next.DueDate.Equal(date(2024, 1, 8)) {
		t.Errorf("Expected due date 2024-01-08, got %v", next.DueDate)
	}
}

func TestNextStateLapse(t *testing.T) {
	params := DefaultParams()
	card := domain.Card{EasinessFactor: 2.36, Repetitions: 2, Interval: 6}

	for _, outcome := range []domain.Outcome{domain.Forgot, domain.Hard} {
		t.Run(outcome.String(), func(t *testing.T) {
			next, err := params.NextState(card, outcome, date(2024, 1, 8))
			if err != nil {
				t.Fatalf("NextState() returned an unexpected error: %v", err)
			}
			if next.Repetitions != 0 {
				t.Errorf("Expected repetitions to reset to 0, got %d", next.Repetitions)
			}
			if next.Interval != 1 {
				t.Errorf("Expected interval 1, got %d", next.Interval)
			}
			if next.EasinessFactor != 2.36 {
				t.Errorf("Expected easiness factor unchanged at 2.36, got %f", next.EasinessFactor)
			}
			if !next.DueDate.Equal(date(2024, 1, 9)) {
				t.Errorf("Expected due date 2024-01-09, got %v", next.DueDate)
			}
		})
	}
}

func TestNextStateMatureInterval(t *testing.T) {
	params := DefaultParams()
	card := domain.Card{EasinessFactor: 2.5, Repetitions: 2, Interval: 6}

	next, err := params.NextState(card, domain.Good, date(2024, 3, 1))
	if err != nil {
		t.Fatalf("NextState() returned an unexpected error: %v", err)
	}
	// EF' = 2.36, interval = round(6 * 2.36) = round(14.16) = 14
	if next.Interval != 14 {
		t.Errorf("Expected interval 14, got %d", next.Interval)
	}
	if next.Repetitions != 3 {
		t.Errorf("Expected repetitions 3, got %d", next.Repetitions)
	}
}

func TestNextStateDueDateIgnoresTimeOfDay(t *testing.T) {
	params := DefaultParams()
	now := time.Date(2024, 5, 10, 22, 45, 13, 0, time.UTC)

	next, _ := params.NextState(domain.Card{EasinessFactor: 2.5}, domain.Good, now)
	if !next.DueDate.Equal(date(2024, 5, 11)) {
		t.Errorf("Expected due date at midnight 2024-05-11, got %v", next.DueDate)
	}
	if !next.LastReviewed.Equal(now) {
		t.Errorf("Expected last reviewed to keep time of day, got %v", next.LastReviewed)
	}
}

func TestNextStateDoesNotModifyInput(t *testing.T) {
	params := DefaultParams()
	due := date(2024, 1, 1)
	card := domain.Card{EasinessFactor: 2.5, Repetitions: 3, Interval: 10, DueDate: &due}

	if _, err := params.NextState(card, domain.Easy, date(2024, 1, 1)); err != nil {
		t.Fatalf("NextState() returned an unexpected error: %v", err)
	}
	if card.Repetitions != 3 || card.Interval != 10 || card.EasinessFactor != 2.5 {
		t.Errorf("Input card was modified: %+v", card)
	}
	if !card.DueDate.Equal(date(2024, 1, 1)) || card.LastReviewed != nil {
		t.Errorf("Input card timestamps were modified: %+v", card)
	}
}

func TestNextStateInvalidOutcome(t *testing.T) {
	params := DefaultParams()
	card := domain.Card{EasinessFactor: 2.5, Repetitions: 1, Interval: 1}

	for _, outcome := range []domain.Outcome{-1, 4, 42} {
		next, err := params.NextState(card, outcome, date(2024, 1, 1))
		if !errors.Is(err, domain.ErrInvalidOutcome) {
			t.Errorf("Expected ErrInvalidOutcome for %d, got %v", outcome, err)
		}
		if next.Repetitions != card.Repetitions || next.Interval != card.Interval {
			t.Errorf("Expected card to be returned unchanged for %d, got %+v", outcome, next)
		}
	}
}

func TestNextStateInvariants(t *testing.T) {
	params := DefaultParams()
	now := date(2024, 6, 1)
	efs := []float64{0, 1.0, 1.3, 1.31, 1.5, 2.0, 2.5, 3.0}
	reps := []int{-1, 0, 1, 2, 3, 10}
	intervals := []int{-5, 0, 1, 2, 6, 30, 365}

	for _, ef := range efs {
		for _, r := range reps {
			for _, iv := range intervals {
				card := domain.Card{EasinessFactor: ef, Repetitions: r, Interval: iv}
				for _, outcome := range domain.Outcomes {
					next, err := params.NextState(card, outcome, now)
					if err != nil {
						t.Fatalf("NextState(%+v, %s) returned an unexpected error: %v", card, outcome, err)
					}
					if next.EasinessFactor < params.MinEasinessFactor {
						t.Errorf("EF below floor for %+v %s: %f", card, outcome, next.EasinessFactor)
					}
					if next.Interval < 1 {
						t.Errorf("Interval below 1 for %+v %s: %d", card, outcome, next.Interval)
					}
					if outcome.IsLapse() && (next.Repetitions != 0 || next.Interval != 1) {
						t.Errorf("Lapse did not reset for %+v %s: %+v", card, outcome, next)
					}
					if !next.DueDate.After(now) {
						t.Errorf("Due date %v not after review day for %+v %s", next.DueDate, card, outcome)
					}
				}
			}
		}
	}
}

func TestNextStateEasyAtLeastGood(t *testing.T) {
	params := DefaultParams()
	now := date(2024, 6, 1)

	for _, ef := range []float64{1.3, 1.7, 2.1, 2.5, 2.9} {
		for _, r := range []int{2, 3, 7} {
			for _, iv := range []int{1, 6, 15, 100} {
				card := domain.Card{EasinessFactor: ef, Repetitions: r, Interval: iv}
				good, _ := params.NextState(card, domain.Good, now)
				easy, _ := params.NextState(card, domain.Easy, now)
				if easy.EasinessFactor < good.EasinessFactor {
					t.Errorf("Easy EF %f < Good EF %f for %+v", easy.EasinessFactor, good.EasinessFactor, card)
				}
				if easy.Interval < good.Interval {
					t.Errorf("Easy interval %d < Good interval %d for %+v", easy.Interval, good.Interval, card)
				}
			}
		}
	}
}

func TestCalculateEasinessFactorFloor(t *testing.T) {
	params := DefaultParams()
	// Good always lowers EF by 0.14, so repeated Good grades bottom out at the floor.
	ef := 1.35
	ef = params.calculateEasinessFactor(ef, domain.Good)
	if ef != params.MinEasinessFactor {
		t.Errorf("Expected EF clamped to %.2f, got %f", params.MinEasinessFactor, ef)
	}
}

func TestQuality(t *testing.T) {
	want := map[domain.Outcome]int{domain.Forgot: 0, domain.Hard: 1, domain.Good: 2, domain.Easy: 3}
	for outcome, q := range want {
		if got := Quality(outcome); got != q {
			t.Errorf("Quality(%s) = %d, want %d", outcome, got, q)
		}
	}
}

func TestPreview(t *testing.T) {
	params := DefaultParams()
	card := domain.Card{EasinessFactor: 2.5, Repetitions: 1, Interval: 1}

	preview := params.Preview(card, date(2024, 1, 1))
	if len(preview) != 4 {
		t.Fatalf("Expected 4 previews, got %d", len(preview))
	}
	if preview[domain.Forgot].Interval != 1 {
		t.Errorf("Expected Forgot preview interval 1, got %d", preview[domain.Forgot].Interval)
	}
	if preview[domain.Easy].Interval != 6 {
		t.Errorf("Expected Easy preview interval 6, got %d", preview[domain.Easy].Interval)
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	in := time.Date(2024, 2, 29, 23, 59, 59, 999, loc)
	got := StartOfDay(in)
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Errorf("StartOfDay(%v) = %v, want %v", in, got, want)
	}
}
