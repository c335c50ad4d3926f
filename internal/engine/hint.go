package engine

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"unicode"
)

const maskRune = '_'

// Mask renders word with all but `revealed` letters hidden. Characters are
// separated by single spaces; non-letters are always shown. The reveal order
// is a permutation seeded by the word, so the output depends only on
// (word, revealed).
func Mask(word string, revealed int) string {
	runes := []rune(word)
	letters := letterPositions(runes)

	show := make(map[int]bool, revealed)
	for i, p := range revealOrder(word, len(letters)) {
		if i >= revealed {
			break
		}
		show[letters[p]] = true
	}

	parts := make([]string, len(runes))
	for i, r := range runes {
		switch {
		case !isLetter(r):
			parts[i] = string(r)
		case show[i]:
			parts[i] = string(r)
		default:
			parts[i] = string(maskRune)
		}
	}
	return strings.Join(parts, " ")
}

// RevealCount is how many letters are shown after elapsed of total seconds.
// It grows linearly up to half the letters and never reveals the whole word.
func RevealCount(word string, elapsed, total int) int {
	n := len(letterPositions([]rune(word)))
	maxReveal := n / 2
	if total <= 0 || elapsed <= 0 || maxReveal == 0 {
		return 0
	}
	if elapsed > total {
		elapsed = total
	}
	return maxReveal * elapsed / total
}

func letterPositions(runes []rune) []int {
	var pos []int
	for i, r := range runes {
		if isLetter(r) {
			pos = append(pos, i)
		}
	}
	return pos
}

func revealOrder(word string, n int) []int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1)).Perm(n)
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
