package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseRating(t *testing.T) {
	testCases := []struct {
		in   string
		want Rating
	}{
		{"again", Again},
		{"Hard", Hard},
		{" good ", Good},
		{"easy", Easy},
		{"errei", Again},
		{"dificil", Hard},
		{"bom", Good},
		{"facil", Easy},
	}
	for _, tc := range testCases {
		got, err := ParseRating(tc.in)
		if err != nil {
			t.Fatalf("ParseRating(%q) returned an unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseRating(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseRating("perfect"); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating, got %v", err)
	}
}

func TestRatingQuality(t *testing.T) {
	want := map[Rating]int{Again: 1, Hard: 3, Good: 4, Easy: 5, Rating(0): 0, Rating(9): 0}
	for r, q := range want {
		if got := r.Quality(); got != q {
			t.Errorf("%v.Quality() = %d, want %d", r, got, q)
		}
	}
}

func TestPatchSnapshotRestores(t *testing.T) {
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	card := Card{ID: "c1", Question: "Q", Answer: "A", Interval: 6, EaseFactor: 2.5, DueDate: due}

	interval, ease := 15, 2.6
	patch := CardPatch{Interval: &interval, EaseFactor: &ease}
	prev := patch.Snapshot(card)

	if prev.Question != nil || prev.DueDate != nil {
		t.Fatalf("Snapshot captured fields the patch does not touch: %+v", prev)
	}
	updated := patch.Apply(card)
	if updated.Interval != 15 || updated.EaseFactor != 2.6 {
		t.Fatalf("Apply did not write the patch: %+v", updated)
	}
	if restored := prev.Apply(updated); !restored.equal(card) {
		t.Errorf("Expected %+v after restoring, got %+v", card, restored)
	}
	if !(CardPatch{}).IsEmpty() || patch.IsEmpty() {
		t.Error("IsEmpty misreports")
	}
}
