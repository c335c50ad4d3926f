// Package words is the default dictionary the game draws secret words from.
package words

import (
	_ "embed"
	"errors"
	"strings"

	"github.com/valyala/fastrand"
)

//go:embed words.txt
var builtin string

var ErrEmpty = errors.New("dictionary has no words")

// List picks uniformly from a fixed set of words. It is safe for
// concurrent use.
type List struct {
	words []string
}

// Default returns the embedded word list.
func Default() *List {
	l, err := Parse(builtin)
	if err != nil {
		panic("words: embedded list: " + err.Error())
	}
	return l
}

// Parse reads one word per line. Blank lines and lines starting with '#'
// are skipped; duplicates are dropped.
func Parse(src string) (*List, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(src, "\n") {
		w := strings.TrimSpace(line)
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return New(out)
}

func New(words []string) (*List, error) {
	if len(words) == 0 {
		return nil, ErrEmpty
	}
	return &List{words: append([]string(nil), words...)}, nil
}

func (l *List) Pick() string {
	return l.words[fastrand.Uint32n(uint32(len(l.words)))]
}

func (l *List) Len() int { return len(l.words) }
