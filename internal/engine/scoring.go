package engine

// Guess describes a correct guess for scoring purposes.
type Guess struct {
	Elapsed  int // seconds into the round
	Total    int // round length in seconds
	Order    int // correct guessers before this one
	Eligible int // non-drawer participants in the room
}

// Scorer turns a correct guess into points for the guesser and the drawer.
type Scorer interface {
	Score(g Guess) (guesser, drawer int)
}

const (
	basePoints    = 50
	speedPoints   = 50
	orderPenalty  = 10
	minimumPoints = 10
)

// DefaultScorer rewards fast and early guesses. The drawer earns the
// guesser's points split across everyone who could guess.
type DefaultScorer struct{}

func (DefaultScorer) Score(g Guess) (int, int) {
	pts := basePoints - orderPenalty*g.Order
	if g.Total > 0 {
		remaining := max(g.Total-g.Elapsed, 0)
		pts += speedPoints * remaining / g.Total
	}
	pts = max(pts, minimumPoints)
	return pts, pts / max(g.Eligible, 1)
}
