package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func containsFolded(text, word string) bool {
	return word != "" && strings.Contains(text, word)
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

// Winners returns the names of every seat holding the maximal score, in
// join order, and that score.
func Winners(seats []Seat, scores map[string]int) ([]string, int) {
	top := 0
	for i, s := range seats {
		if sc := scores[s.ID]; i == 0 || sc > top {
			top = sc
		}
	}
	var names []string
	for _, s := range seats {
		if scores[s.ID] == top {
			names = append(names, s.Name)
		}
	}
	return names, top
}
