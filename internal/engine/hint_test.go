package engine

import (
	"strings"
	"testing"
)

func TestMask_HidesLettersKeepsSpaces(t *testing.T) {
	got := Mask("ice cream", 0)
	want := "_ _ _   _ _ _ _ _"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMask_DeterministicAndGrowing(t *testing.T) {
	word := "elephant"
	prev := 0
	for k := 0; k <= 4; k++ {
		a, b := Mask(word, k), Mask(word, k)
		if a != b {
			t.Fatalf("mask not deterministic for k=%d", k)
		}
		shown := len(word) - strings.Count(a, "_")
		if shown != k {
			t.Fatalf("k=%d: %d letters shown in %q", k, shown, a)
		}
		if shown < prev {
			t.Fatalf("revealed set shrank")
		}
		prev = shown
	}
	if !strings.Contains(Mask(word, 4), "_") {
		t.Fatalf("hint must never reveal the whole word")
	}
}

func TestRevealCount(t *testing.T) {
	cases := []struct {
		word           string
		elapsed, total int
		want           int
	}{
		{"elephant", 0, 30, 0},
		{"elephant", 15, 30, 2},
		{"elephant", 30, 30, 4},
		{"elephant", 99, 30, 4},
		{"a", 30, 30, 0},
		{"cat", 29, 30, 0},
		{"cat", 30, 30, 1},
	}
	for _, tc := range cases {
		if got := RevealCount(tc.word, tc.elapsed, tc.total); got != tc.want {
			t.Fatalf("RevealCount(%q,%d,%d)=%d, want %d", tc.word, tc.elapsed, tc.total, got, tc.want)
		}
	}
}

func TestDefaultScorer(t *testing.T) {
	fast, drawerFast := DefaultScorer{}.Score(Guess{Elapsed: 0, Total: 30, Order: 0, Eligible: 1})
	slow, _ := DefaultScorer{}.Score(Guess{Elapsed: 29, Total: 30, Order: 0, Eligible: 1})
	late, _ := DefaultScorer{}.Score(Guess{Elapsed: 0, Total: 30, Order: 2, Eligible: 3})

	if !(fast > slow) || !(fast > late) {
		t.Fatalf("points should drop with time and order: fast=%d slow=%d late=%d", fast, slow, late)
	}
	if drawerFast != fast {
		t.Fatalf("single guesser: drawer should earn the same, got %d vs %d", drawerFast, fast)
	}
	floor, _ := DefaultScorer{}.Score(Guess{Elapsed: 30, Total: 30, Order: 9, Eligible: 10})
	if floor != minimumPoints {
		t.Fatalf("want floor %d, got %d", minimumPoints, floor)
	}
}
